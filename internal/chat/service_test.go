package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/vinaysb/mindcare-navigator/internal/ai"
	"github.com/vinaysb/mindcare-navigator/internal/memory"
	"github.com/vinaysb/mindcare-navigator/internal/models"
	"github.com/vinaysb/mindcare-navigator/internal/store"
	"gorm.io/gorm"
)

type recordingProvider struct {
	reply string
	err   error
	last  []ai.Message
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.last = append([]ai.Message(nil), messages...)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newTestService(t *testing.T, prov *recordingProvider) (*Service, *store.SQLStore) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.NewSQLStore(db)
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context) (ai.Provider, error) {
		_ = ctx
		return prov, nil
	})
	cascade := ai.NewCascade(reg, []string{"fake"}, nil, "fake")

	return NewService(st, cascade, memory.NewManager(st)), st
}

func TestSend_WritesBothTurnsAndStripsMoodTag(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: calm] I am glad to hear that."}
	svc, st := newTestService(t, prov)

	res, err := svc.Send(context.Background(), 11, "01SESSSVC0000000000000001", "Hello", "", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Reply != "I am glad to hear that." {
		t.Fatalf("unexpected reply %q", res.Reply)
	}
	if string(res.Sentiment) != "calm" {
		t.Fatalf("expected calm, got %q", res.Sentiment)
	}

	turns, err := st.History(context.Background(), 11, "01SESSSVC0000000000000001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Content != "Hello" {
		t.Fatalf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != "assistant" || turns[1].Content != "I am glad to hear that." {
		t.Fatalf("assistant turn must store the tag-stripped reply: %+v", turns[1])
	}
}

func TestSend_TagOnlyReplyFallsBackToResponder(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: calm]"}
	svc, st := newTestService(t, prov)

	res, err := svc.Send(context.Background(), 15, "01SESSSVC0000000000000006", "I feel stressed", "", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Reply == "" {
		t.Fatalf("reply must never be empty")
	}
	if res.Reply != ai.FallbackReply("I feel stressed") {
		t.Fatalf("expected responder text for tag-only reply, got %q", res.Reply)
	}
	if string(res.Sentiment) != "calm" {
		t.Fatalf("tag label must survive the fallback, got %q", res.Sentiment)
	}

	turns, err := st.History(context.Background(), 15, "01SESSSVC0000000000000006")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 || turns[1].Content == "" {
		t.Fatalf("assistant turn must persist the substituted reply: %+v", turns)
	}
}

func TestSend_AllProvidersFail_StillReplies(t *testing.T) {
	prov := &recordingProvider{err: errors.New("upstream down")}
	svc, _ := newTestService(t, prov)

	res, err := svc.Send(context.Background(), 12, "01SESSSVC0000000000000002", "I feel stressed", "", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Reply == "" {
		t.Fatalf("reply must never be empty")
	}
	if res.Provider != ai.SourceFallback {
		t.Fatalf("expected fallback source, got %q", res.Provider)
	}
	if string(res.Sentiment) != "neutral" {
		t.Fatalf("expected neutral sentiment from responder, got %q", res.Sentiment)
	}
}

func TestSend_GeneratesSessionIDWhenAbsent(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: happy] Welcome!"}
	svc, _ := newTestService(t, prov)

	res, err := svc.Send(context.Background(), 0, "", "hi", "", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(res.SessionID) != 26 {
		t.Fatalf("expected a fresh ULID session id, got %q", res.SessionID)
	}
}

func TestSend_PromptCarriesContextWindow(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: neutral] ok"}
	svc, _ := newTestService(t, prov)
	ctx := context.Background()

	if _, err := svc.Send(ctx, 13, "01SESSSVC0000000000000003", "first message", "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Send(ctx, 13, "01SESSSVC0000000000000003", "second message", "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	// system + (first pair) + new message
	if len(prov.last) != 4 {
		t.Fatalf("expected 4 provider messages, got %d: %+v", len(prov.last), prov.last)
	}
	if prov.last[0].Role != "system" {
		t.Fatalf("expected system prompt first, got %+v", prov.last[0])
	}
	if prov.last[1].Content != "first message" || prov.last[2].Content != "ok" {
		t.Fatalf("expected prior exchange in context, got %+v", prov.last[1:3])
	}
	last := prov.last[len(prov.last)-1]
	if last.Role != "user" || last.Content != "second message" {
		t.Fatalf("expected the new user message last, got %+v", last)
	}
}

func TestSend_LanguageHintReachesSystemPrompt(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: neutral] ok"}
	svc, _ := newTestService(t, prov)

	if _, err := svc.Send(context.Background(), 0, "01SESSSVC0000000000000004", "hola", "", "Spanish"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(prov.last[0].Content, "Respond in Spanish.") {
		t.Fatalf("expected language hint in system prompt, got %q", prov.last[0].Content)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) SaveTurn(ctx context.Context, turn *models.Turn) error {
	_ = ctx
	_ = turn
	return store.ErrUnavailable
}

func (failingStore) History(ctx context.Context, userID uint64, sessionID string) ([]models.Turn, error) {
	_ = ctx
	_ = userID
	_ = sessionID
	return nil, store.ErrUnavailable
}

func TestSend_PersistenceFailureStaysInvisible(t *testing.T) {
	prov := &recordingProvider{reply: "[MOOD: calm] all good"}

	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context) (ai.Provider, error) {
		_ = ctx
		return prov, nil
	})
	cascade := ai.NewCascade(reg, []string{"fake"}, nil, "fake")

	fs := failingStore{}
	svc := NewService(fs, cascade, memory.NewManager(fs))

	res, err := svc.Send(context.Background(), 14, "01SESSSVC0000000000000005", "hello", "", "")
	if err != nil {
		t.Fatalf("persistence failure must not surface: %v", err)
	}
	if res.Reply != "all good" {
		t.Fatalf("unexpected reply %q", res.Reply)
	}
}
