package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hanchat/hanchat/types"
	"hanchat/hanchat/utils/logging"
)

// --- Helpers ---

type stubRelay struct {
	reply string
	err   error
	block chan struct{}
}

func (s *stubRelay) Reply(ctx context.Context, message string, romanize *bool) (string, error) {
	if s.block != nil {
		<-s.block
	}
	return s.reply, s.err
}

type stubSeeder struct {
	sessions []types.ChatSession
	err      error
}

func (s *stubSeeder) Load(ctx context.Context) ([]types.ChatSession, error) {
	return s.sessions, s.err
}

func newTestStore(t *testing.T, relay Relay) *Store {
	t.Helper()
	logging.InitLogger(t.TempDir()) // ensures loggers aren't nil
	st := NewStore(relay)
	st.Initialize(context.Background(), nil)
	return st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// --- Initialization ---

func TestInitializeFreshLoad(t *testing.T) {
	st := newTestStore(t, &stubRelay{})
	sessions := st.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != DefaultTitle {
		t.Errorf("expected title %q, got %q", DefaultTitle, sessions[0].Title)
	}
	if len(sessions[0].Messages) != 0 {
		t.Errorf("expected empty messages, got %d", len(sessions[0].Messages))
	}
	if st.Current().ID != sessions[0].ID {
		t.Errorf("expected first session to be current")
	}
}

func TestInitializeFallsBackOnLoadError(t *testing.T) {
	logging.InitLogger(t.TempDir())
	st := NewStore(&stubRelay{})
	st.Initialize(context.Background(), &stubSeeder{err: errors.New("corrupted")})
	sessions := st.Sessions()
	if len(sessions) != 1 || sessions[0].Title != DefaultTitle {
		t.Fatalf("expected single fresh session after load error, got %+v", sessions)
	}
}

func TestInitializeKeepsPersistedOrder(t *testing.T) {
	logging.InitLogger(t.TempDir())
	a := types.NewSession("first")
	b := types.NewSession("second")
	st := NewStore(&stubRelay{})
	st.Initialize(context.Background(), &stubSeeder{sessions: []types.ChatSession{a, b}})
	sessions := st.Sessions()
	if len(sessions) != 2 || sessions[0].ID != a.ID || sessions[1].ID != b.ID {
		t.Fatalf("stored order not preserved")
	}
	if st.Current().ID != a.ID {
		t.Errorf("expected first stored session to be current")
	}
}

// --- Session list operations ---

func TestStartNewChatIsFirstAndCurrent(t *testing.T) {
	st := newTestStore(t, &stubRelay{})
	fresh := st.StartNewChat()
	sessions := st.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != fresh.ID {
		t.Errorf("new session should be first")
	}
	if st.Current().ID != fresh.ID {
		t.Errorf("new session should be current")
	}
	if fresh.Title != DefaultTitle || len(fresh.Messages) != 0 {
		t.Errorf("new session should be empty with default title")
	}
}

func TestLoadChatUnknownIDIsNoop(t *testing.T) {
	st := newTestStore(t, &stubRelay{})
	before := st.Current().ID
	st.LoadChat("does-not-exist")
	if st.Current().ID != before {
		t.Errorf("unknown id must not change the current session")
	}
}

func TestDeleteOnlySessionLeavesOneFresh(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "ok"})
	old := st.Current().ID
	if _, err := st.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatal(err)
	}
	st.DeleteSession(old)
	sessions := st.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session after deleting the last one, got %d", len(sessions))
	}
	if sessions[0].ID == old {
		t.Errorf("expected a fresh session, got the deleted one back")
	}
	if sessions[0].Title != DefaultTitle || len(sessions[0].Messages) != 0 {
		t.Errorf("replacement session should be empty")
	}
	if st.Current().ID != sessions[0].ID {
		t.Errorf("replacement session should be current")
	}
}

func TestDeleteCurrentMovesCurrentToFirst(t *testing.T) {
	st := newTestStore(t, &stubRelay{})
	st.StartNewChat()
	b := st.StartNewChat() // current, first
	st.DeleteSession(b.ID)
	sessions := st.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if st.Current().ID != sessions[0].ID {
		t.Errorf("current should move to the new first session")
	}
}

func TestDeleteOtherSessionKeepsCurrent(t *testing.T) {
	st := newTestStore(t, &stubRelay{})
	a := st.Current().ID
	b := st.StartNewChat()
	st.DeleteSession(a)
	if st.Current().ID != b.ID {
		t.Errorf("deleting a non-current session must not move current")
	}
}

// --- SendMessage ---

func TestSendMessageSuccess(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "안녕하세요!"})
	msgs, err := st.SendMessage(context.Background(), "안녕", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected the user and assistant messages back, got %d", len(msgs))
	}
	cur := st.Current()
	if len(cur.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(cur.Messages))
	}
	if cur.Messages[0].Role != types.RoleUser || cur.Messages[0].Content != "안녕" {
		t.Errorf("unexpected user message: %+v", cur.Messages[0])
	}
	if cur.Messages[1].Role != types.RoleAssistant || cur.Messages[1].Content != "안녕하세요!" {
		t.Errorf("unexpected assistant message: %+v", cur.Messages[1])
	}
	if cur.LastMessage != "안녕하세요!" {
		t.Errorf("lastMessage = %q, want reply text", cur.LastMessage)
	}
	if cur.Title != "안녕" {
		t.Errorf("title = %q, want truncation of the first user message", cur.Title)
	}
}

func TestSendMessageFailure(t *testing.T) {
	st := newTestStore(t, &stubRelay{err: errors.New("upstream down")})
	if _, err := st.SendMessage(context.Background(), "안녕", nil); err != nil {
		t.Fatal(err)
	}
	cur := st.Current()
	if len(cur.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(cur.Messages))
	}
	bot := cur.Messages[1]
	if bot.Role != types.RoleAssistant || !bot.IsError {
		t.Errorf("expected an assistant error bubble, got %+v", bot)
	}
	if bot.Content != errorBubbleKorean {
		t.Errorf("error bubble = %q, want the fixed localized string", bot.Content)
	}
	if cur.LastMessage != ErrorMarker {
		t.Errorf("lastMessage = %q, want the distinct error marker %q", cur.LastMessage, ErrorMarker)
	}
	if cur.LastMessage == bot.Content {
		t.Errorf("marker must differ from the bubble text")
	}
}

func TestSendMessageRejectsBadInput(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "ok"})
	cases := []string{"", "   ", "\t\n", strings.Repeat("가", MaxMessageRunes+1)}
	for _, input := range cases {
		msgs, err := st.SendMessage(context.Background(), input, nil)
		if err != nil || msgs != nil {
			t.Errorf("input %q: expected silent rejection, got msgs=%v err=%v", input, msgs, err)
		}
	}
	if n := len(st.Current().Messages); n != 0 {
		t.Errorf("message list changed on rejected input: %d messages", n)
	}
	// exactly at the limit is still allowed
	if msgs, err := st.SendMessage(context.Background(), strings.Repeat("가", MaxMessageRunes), nil); err != nil || len(msgs) != 2 {
		t.Errorf("limit-length message should be accepted, got msgs=%v err=%v", msgs, err)
	}
}

func TestSendMessagesAlternate(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "reply"})
	for i := 0; i < 5; i++ {
		if _, err := st.SendMessage(context.Background(), "hello", nil); err != nil {
			t.Fatal(err)
		}
	}
	cur := st.Current()
	if len(cur.Messages)%2 != 0 {
		t.Fatalf("expected even message count, got %d", len(cur.Messages))
	}
	for i, msg := range cur.Messages {
		want := types.RoleUser
		if i%2 == 1 {
			want = types.RoleAssistant
		}
		if msg.Role != want {
			t.Errorf("message %d: role %q, want %q", i, msg.Role, want)
		}
	}
}

func TestTitleDerivedOnceAndEllipsized(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "ok"})
	long := strings.Repeat("한", 30)
	if _, err := st.SendMessage(context.Background(), long, nil); err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("한", 20) + "..."
	if got := st.Current().Title; got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
	if _, err := st.SendMessage(context.Background(), "second message", nil); err != nil {
		t.Fatal(err)
	}
	if got := st.Current().Title; got != want {
		t.Errorf("title changed on second send: %q", got)
	}
}

func TestSecondSendWhileInFlightIsRefused(t *testing.T) {
	relay := &stubRelay{reply: "late", block: make(chan struct{})}
	st := newTestStore(t, relay)
	done := make(chan struct{})
	go func() {
		defer close(done)
		st.SendMessage(context.Background(), "first", nil)
	}()
	waitFor(t, st.Loading)
	if _, err := st.SendMessage(context.Background(), "second", nil); !errors.Is(err, ErrSendInFlight) {
		t.Errorf("expected ErrSendInFlight, got %v", err)
	}
	close(relay.block)
	<-done
	if st.Loading() {
		t.Errorf("loading must clear when the exchange concludes")
	}
}

func TestLateReplyBindsToOriginalSession(t *testing.T) {
	relay := &stubRelay{reply: "late reply", block: make(chan struct{})}
	st := newTestStore(t, relay)
	a := st.Current()
	b := st.StartNewChat()
	st.LoadChat(a.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		st.SendMessage(context.Background(), "to session A", nil)
	}()
	waitFor(t, st.Loading)

	// switch away before the relay resolves
	st.LoadChat(b.ID)
	close(relay.block)
	<-done

	sessA, _ := st.Session(a.ID)
	sessB, _ := st.Session(b.ID)
	if len(sessA.Messages) != 2 {
		t.Fatalf("session A should hold both messages, got %d", len(sessA.Messages))
	}
	if sessA.Messages[1].Content != "late reply" {
		t.Errorf("reply went missing from session A")
	}
	if len(sessB.Messages) != 0 {
		t.Errorf("reply leaked into session B")
	}
}

func TestReplyDiscardedWhenSessionDeletedMidFlight(t *testing.T) {
	relay := &stubRelay{reply: "orphan", block: make(chan struct{})}
	st := newTestStore(t, relay)
	a := st.Current()

	done := make(chan struct{})
	go func() {
		defer close(done)
		st.SendMessage(context.Background(), "doomed", nil)
	}()
	waitFor(t, st.Loading)

	st.DeleteSession(a.ID)
	close(relay.block)
	<-done

	for _, sess := range st.Sessions() {
		for _, msg := range sess.Messages {
			if msg.Content == "orphan" {
				t.Fatalf("discarded reply surfaced in session %s", sess.ID)
			}
		}
	}
	if st.Loading() {
		t.Errorf("loading must clear even when the reply is discarded")
	}
}

// --- Observer contract ---

func TestSubscribersSeeEveryMutation(t *testing.T) {
	logging.InitLogger(t.TempDir())
	st := NewStore(&stubRelay{reply: "ok"})
	var snapshots [][]types.ChatSession
	st.Subscribe(func(sessions []types.ChatSession) {
		snapshots = append(snapshots, sessions)
	})
	st.Initialize(context.Background(), nil)
	st.StartNewChat()
	st.SendMessage(context.Background(), "hi", nil)

	// initialize + new chat + user append + assistant append
	if len(snapshots) != 4 {
		t.Fatalf("expected 4 change notifications, got %d", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if len(last) != 2 || len(last[0].Messages) != 2 {
		t.Errorf("final snapshot should mirror the store state, got %+v", last)
	}
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	st := newTestStore(t, &stubRelay{reply: "ok"})
	sessions := st.Sessions()
	sessions[0].Title = "mutated"
	if st.Current().Title == "mutated" {
		t.Errorf("snapshot mutation leaked into the store")
	}
}
