// Package session holds the authoritative chat-session list and its state
// machine. Every mutation is published to subscribers (the persistence
// mirror among them); the list is never empty and the current pointer is
// always valid.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"hanchat/hanchat/types"
	"hanchat/hanchat/utils/lang"
	"hanchat/hanchat/utils/logging"

	"go.uber.org/zap"
)

const (
	// DefaultTitle marks a session whose title has not yet been derived
	// from its first user message.
	DefaultTitle = "New Chat"

	// ErrorMarker is the sidebar preview for a failed exchange. It is
	// deliberately distinct from the error bubble text.
	ErrorMarker = "오류 발생"

	// MaxMessageRunes guards the upstream completion cost, not a protocol
	// limit.
	MaxMessageRunes = 1000

	titleRunes = 20

	errorBubbleKorean = "죄송합니다. 오류가 발생했습니다. 다시 시도해주세요."
	errorBubbleOther  = "Sorry, something went wrong. Please try again."
)

// ErrSendInFlight is returned while another send is still outstanding; the
// view renders it as the disabled send control.
var ErrSendInFlight = errors.New("a send is already in flight")

// Relay resolves one user message into one assistant reply.
type Relay interface {
	Reply(ctx context.Context, message string, romanize *bool) (string, error)
}

// Seeder provides the initial session list, typically the persistence
// mirror.
type Seeder interface {
	Load(ctx context.Context) ([]types.ChatSession, error)
}

type Store struct {
	mu        sync.Mutex
	sessions  []types.ChatSession
	currentID string
	sending   bool
	relay     Relay
	onChange  []func([]types.ChatSession)
}

func NewStore(relay Relay) *Store {
	return &Store{relay: relay}
}

// Subscribe registers a change listener. Listeners receive a snapshot of
// the full session list after every mutation, on the mutating goroutine.
// Must be called before Initialize.
func (s *Store) Subscribe(fn func([]types.ChatSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Initialize seeds the store from persisted state. A failed, empty or
// malformed read falls back to a single fresh session; the first session
// becomes current.
func (s *Store) Initialize(ctx context.Context, seed Seeder) {
	var sessions []types.ChatSession
	if seed != nil {
		loaded, err := seed.Load(ctx)
		if err != nil {
			logging.ErrorLogger.Error("history load failed, starting fresh", zap.Error(err))
		} else {
			sessions = loaded
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(sessions) == 0 {
		sessions = []types.ChatSession{types.NewSession(DefaultTitle)}
	}
	s.sessions = sessions
	s.currentID = sessions[0].ID
	s.notifyLocked()
}

// StartNewChat prepends a fresh empty session and makes it current.
func (s *Store) StartNewChat() types.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := types.NewSession(DefaultTitle)
	s.sessions = append([]types.ChatSession{fresh}, s.sessions...)
	s.currentID = fresh.ID
	s.notifyLocked()
	return copySession(fresh)
}

// LoadChat switches the current session. An unknown id is a silent no-op.
func (s *Store) LoadChat(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) >= 0 {
		s.currentID = id
	}
}

// DeleteSession removes a session. Deleting the last one leaves a single
// fresh session; deleting the current one moves current to the new first
// session.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if len(s.sessions) == 0 {
		s.sessions = []types.ChatSession{types.NewSession(DefaultTitle)}
	}
	if s.currentID == id {
		s.currentID = s.sessions[0].ID
	}
	s.notifyLocked()
}

// SendMessage appends the user message to the current session, resolves a
// reply through the relay and appends it as the assistant message. The
// reply is bound to the session that was current when the send began; if
// that session is deleted mid-flight the reply is discarded. Empty and
// over-length inputs are rejected silently (nil, nil). Only one send may
// be outstanding at a time.
func (s *Store) SendMessage(ctx context.Context, text string, romanize *bool) ([]types.ChatMessage, error) {
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}
	s.sending = true
	targetID := s.currentID
	userMsg := types.NewMessage(types.RoleUser, text)
	target := &s.sessions[s.indexLocked(targetID)]
	target.Messages = append(target.Messages, userMsg)
	target.LastMessage = text
	target.UpdatedAt = types.Now()
	if target.Title == DefaultTitle {
		target.Title = deriveTitle(text)
	}
	s.notifyLocked()
	s.mu.Unlock()

	reply, err := s.relay.Reply(ctx, text, romanize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	idx := s.indexLocked(targetID)
	if idx < 0 {
		logging.AppLogger.Info("reply discarded, session deleted mid-flight",
			zap.String("session_id", targetID))
		return nil, nil
	}
	target = &s.sessions[idx]

	var botMsg types.ChatMessage
	if err != nil {
		botMsg = types.NewMessage(types.RoleAssistant, errorBubble(text))
		botMsg.IsError = true
		target.LastMessage = ErrorMarker
	} else {
		botMsg = types.NewMessage(types.RoleAssistant, reply)
		target.LastMessage = reply
	}
	target.Messages = append(target.Messages, botMsg)
	target.UpdatedAt = types.Now()
	s.notifyLocked()
	return []types.ChatMessage{userMsg, botMsg}, nil
}

// Loading reports whether a send is outstanding.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Sessions returns a snapshot of the full list, most recent first.
func (s *Store) Sessions() []types.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySessions(s.sessions)
}

// Summaries returns the sidebar projections, most recent first.
func (s *Store) Summaries() []types.ChatSessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]types.ChatSessionSummary, len(s.sessions))
	for i, sess := range s.sessions {
		summaries[i] = sess.Summary()
	}
	return summaries
}

// Current returns a snapshot of the current session.
func (s *Store) Current() types.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.sessions[s.indexLocked(s.currentID)])
}

// Session returns a snapshot of one session by id.
func (s *Store) Session(id string) (types.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return types.ChatSession{}, false
	}
	return copySession(s.sessions[idx]), true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notifyLocked() {
	if len(s.onChange) == 0 {
		return
	}
	snapshot := copySessions(s.sessions)
	for _, fn := range s.onChange {
		fn(snapshot)
	}
}

func deriveTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= titleRunes {
		return string(runes)
	}
	return string(runes[:titleRunes]) + "..."
}

func errorBubble(userText string) string {
	if lang.IsKorean(userText) {
		return errorBubbleKorean
	}
	return errorBubbleOther
}

func copySession(sess types.ChatSession) types.ChatSession {
	out := sess
	out.Messages = append([]types.ChatMessage(nil), sess.Messages...)
	return out
}

func copySessions(sessions []types.ChatSession) []types.ChatSession {
	out := make([]types.ChatSession, len(sessions))
	for i, sess := range sessions {
		out[i] = copySession(sess)
	}
	return out
}
