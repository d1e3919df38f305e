package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zhouzirui/homebot/backend/internal/metrics"
	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	"github.com/zhouzirui/homebot/backend/internal/model/expression"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
	chatService "github.com/zhouzirui/homebot/backend/internal/service/chat"
)

type fakeAnswerer struct {
	answer  string
	err     error
	calls   int
	history []chat.Message
}

func (f *fakeAnswerer) Answer(_ context.Context, _ rule.Bot, history []chat.Message, _ string) (string, error) {
	f.calls++
	f.history = history
	return f.answer, f.err
}

func newService(t *testing.T, opts Options) (*Service, *chatService.Service) {
	t.Helper()
	chats := chatService.NewService()
	svc, err := NewService(rule.NewMemoryStore(rule.Seed()), chats, opts)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	return svc, chats
}

func TestReplyMatchesRuleAndRecordsTranscript(t *testing.T) {
	recorder := metrics.New()
	svc, _ := newService(t, Options{Metrics: recorder})
	ctx := context.Background()

	session, greeting, err := svc.CreateSession(ctx, rule.ProductAssistantID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if len(greeting) != 1 || greeting[0].Sender != chat.SenderBot {
		t.Fatalf("expected greeting message, got %+v", greeting)
	}

	turn, err := svc.Reply(ctx, session.ID, "  What's the price?  ")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if turn.RuleKey != "prices" || turn.Fallback {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if !strings.Contains(turn.Reply.Text, "Basic: $999") {
		t.Fatalf("unexpected reply %q", turn.Reply.Text)
	}
	if turn.User.Text != "What's the price?" {
		t.Fatalf("expected trimmed user text, got %q", turn.User.Text)
	}

	transcript, err := svc.Transcript(ctx, session.ID)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(transcript) != 3 {
		t.Fatalf("expected greeting, user and reply, got %d messages", len(transcript))
	}
	if transcript[1].Sender != chat.SenderUser || transcript[2].Sender != chat.SenderBot {
		t.Fatalf("unexpected message order %+v", transcript)
	}

	count, err := testutil.GatherAndCount(recorder.Registry(), "homebot_resolutions_total")
	if err != nil || count != 1 {
		t.Fatalf("expected one resolution series, got %d err=%v", count, err)
	}
}

func TestReplyFallbackWithoutAI(t *testing.T) {
	recorder := metrics.New()
	svc, _ := newService(t, Options{Metrics: recorder})
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, rule.ProductAssistantID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	turn, err := svc.Reply(ctx, session.ID, "asdkjasnd")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if !turn.Fallback || turn.RuleKey != "unknown" || turn.Expression != expression.Neutral {
		t.Fatalf("unexpected fallback turn %+v", turn)
	}
	if turn.Face != expression.FaceFor(expression.Neutral) {
		t.Fatalf("unexpected face %+v", turn.Face)
	}

	count, err := testutil.GatherAndCount(recorder.Registry(), "homebot_fallbacks_total")
	if err != nil || count != 1 {
		t.Fatalf("expected fallback to be counted, got %d err=%v", count, err)
	}
}

func TestReplyUsesAIForFallback(t *testing.T) {
	ai := &fakeAnswerer{answer: "Sorry, the robot cannot climb stairs yet."}
	svc, _ := newService(t, Options{AI: ai})
	ctx := context.Background()

	session, _, _ := svc.CreateSession(ctx, rule.ProductAssistantID)

	turn, err := svc.Reply(ctx, session.ID, "can it climb stairs")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if !turn.Generated || turn.Reply.Text != ai.answer {
		t.Fatalf("expected generated reply, got %+v", turn)
	}
	if turn.Expression != expression.Sad {
		t.Fatalf("expected expression inferred from answer, got %s", turn.Expression)
	}
	if len(ai.history) != 1 || ai.history[0].Sender != chat.SenderBot {
		t.Fatalf("history must exclude the current question, got %+v", ai.history)
	}

	if _, err := svc.Reply(ctx, session.ID, "how much is it"); err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if ai.calls != 1 {
		t.Fatalf("AI must only be used for fallback turns, got %d calls", ai.calls)
	}
}

func TestReplyKeepsCannedFallbackOnAIError(t *testing.T) {
	recorder := metrics.New()
	ai := &fakeAnswerer{err: errors.New("timeout")}
	svc, _ := newService(t, Options{AI: ai, Metrics: recorder})
	ctx := context.Background()

	session, _, _ := svc.CreateSession(ctx, rule.ProductAssistantID)
	turn, err := svc.Reply(ctx, session.ID, "zzz")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if turn.Generated || !strings.HasPrefix(turn.Reply.Text, "I'm not sure about that.") {
		t.Fatalf("expected canned fallback, got %+v", turn)
	}
}

func TestReplyRejectsEmptyMessage(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()
	session, _, _ := svc.CreateSession(ctx, rule.ProductAssistantID)

	if _, err := svc.Reply(ctx, session.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	transcript, _ := svc.Transcript(ctx, session.ID)
	if len(transcript) != 1 {
		t.Fatalf("empty input must not be recorded, got %d messages", len(transcript))
	}
}

func TestReplyUnknownSession(t *testing.T) {
	svc, _ := newService(t, Options{})
	if _, err := svc.Reply(context.Background(), "missing", "hello"); !errors.Is(err, chatService.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestReplyCancelledDuringDelay(t *testing.T) {
	svc, _ := newService(t, Options{ReplyDelay: time.Hour})
	session, _, _ := svc.CreateSession(context.Background(), rule.HomeAssistantID)

	ctx, cancel := context.WithCancel(context.Background())
	var userSeen bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	turn, err := svc.Reply(ctx, session.ID, "Tell me a joke!", WithUserMessage(func(chat.Message) { userSeen = true }))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !userSeen || turn.User.Text != "Tell me a joke!" {
		t.Fatalf("user message should be recorded before the delay, got %+v", turn)
	}

	transcript, _ := svc.Transcript(context.Background(), session.ID)
	if len(transcript) != 1 || transcript[0].Sender != chat.SenderUser {
		t.Fatalf("reply must be dropped after cancellation, got %+v", transcript)
	}
}

func TestCloseSessionDestroysHistory(t *testing.T) {
	recorder := metrics.New()
	svc, _ := newService(t, Options{Metrics: recorder})
	ctx := context.Background()

	session, _, _ := svc.CreateSession(ctx, rule.HomeAssistantID)
	if err := svc.CloseSession(ctx, session.ID); err != nil {
		t.Fatalf("CloseSession err: %v", err)
	}
	if _, err := svc.Transcript(ctx, session.ID); !errors.Is(err, chatService.ErrSessionNotFound) {
		t.Fatalf("expected history to be destroyed, got %v", err)
	}
	if err := svc.CloseSession(ctx, session.ID); !errors.Is(err, chatService.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second close, got %v", err)
	}
}

func TestResolveAndLookup(t *testing.T) {
	svc, _ := newService(t, Options{})

	r, err := svc.Resolve(rule.HomeAssistantID, "How's the weather?")
	if err != nil || r.Key != "weather" || r.Expression != expression.Surprised {
		t.Fatalf("unexpected rule %+v err=%v", r, err)
	}

	if _, err := svc.Resolve("nope", "hello"); !errors.Is(err, ErrBotNotFound) {
		t.Fatalf("expected ErrBotNotFound, got %v", err)
	}
	if _, _, err := svc.CreateSession(context.Background(), "nope"); !errors.Is(err, ErrBotNotFound) {
		t.Fatalf("expected ErrBotNotFound, got %v", err)
	}

	bots := svc.Bots()
	if len(bots) != 2 || bots[0].ID != rule.ProductAssistantID {
		t.Fatalf("unexpected bots %+v", bots)
	}
}

func TestNewServiceRejectsInvalidTable(t *testing.T) {
	store := rule.NewMemoryStore([]rule.Bot{{ID: "broken", Rules: []rule.Rule{{Key: "a", Triggers: []string{"x"}, Response: "y"}}}})
	if _, err := NewService(store, chatService.NewService(), Options{}); !errors.Is(err, rule.ErrNoFallback) {
		t.Fatalf("expected ErrNoFallback, got %v", err)
	}
}
