package types

import "github.com/google/uuid"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}

// ChatSession is one conversation thread. Messages are append-only and
// ordered by insertion; insertion order is chronological order.
type ChatSession struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	LastMessage string        `json:"lastMessage"`
	Timestamp   Timestamp     `json:"timestamp"`
	CreatedAt   Timestamp     `json:"createdAt"`
	UpdatedAt   Timestamp     `json:"updatedAt"`
	Messages    []ChatMessage `json:"messages"`
}

func NewMessage(role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: Now(),
	}
}

func NewSession(title string) ChatSession {
	now := Now()
	return ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		Timestamp: now,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []ChatMessage{},
	}
}

// ChatRequest is the body of POST /api/chat and of session sends.
// Romanize nil means "detect from the message text".
type ChatRequest struct {
	Message  string `json:"message"`
	Romanize *bool  `json:"romanize,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type LoadChatRequest struct {
	ID string `json:"id"`
}

// ChatSessionSummary is the sidebar projection of a session.
type ChatSessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	UpdatedAt    Timestamp `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

func (s ChatSession) Summary() ChatSessionSummary {
	return ChatSessionSummary{
		ID:           s.ID,
		Title:        s.Title,
		LastMessage:  s.LastMessage,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
	}
}
