package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/vinaysb/mindcare-navigator/internal/models"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := NewSQLStore(db)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestSaveTurnAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, msg := range []struct{ role, content string }{
		{"user", "hello"},
		{"assistant", "hi, how are you feeling?"},
		{"user", "stressed"},
	} {
		if err := s.SaveTurn(ctx, &models.Turn{
			SessionID: "01SESSHIST0000000000000000",
			UserID:    7,
			Role:      msg.role,
			Content:   msg.content,
		}); err != nil {
			t.Fatalf("save turn %d: %v", i, err)
		}
	}

	turns, err := s.History(ctx, 7, "01SESSHIST0000000000000000")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Content != "hello" || turns[2].Content != "stressed" {
		t.Fatalf("history out of order: %+v", turns)
	}
	if turns[1].Role != "assistant" {
		t.Fatalf("expected explicit role on every turn, got %q", turns[1].Role)
	}
}

func TestSaveTurn_AcceptsLongOpaqueSessionID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sid := "client-supplied/" + strings.Repeat("x", 100)
	if err := s.SaveTurn(ctx, &models.Turn{
		SessionID: sid, UserID: 21, Role: "user", Content: "hello",
	}); err != nil {
		t.Fatalf("save turn: %v", err)
	}

	turns, err := s.History(ctx, 21, sid)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 1 || turns[0].SessionID != sid {
		t.Fatalf("long session id must round-trip: %+v", turns)
	}
}

func TestSessionIDs_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, sid := range []string{"01SESSA", "01SESSB", "01SESSA", "01SESSC"} {
		if err := s.SaveTurn(ctx, &models.Turn{
			SessionID: sid, UserID: 8, Role: "user", Content: "x",
		}); err != nil {
			t.Fatalf("save turn: %v", err)
		}
	}

	ids, err := s.SessionIDs(ctx, 8)
	if err != nil {
		t.Fatalf("session ids: %v", err)
	}
	want := []string{"01SESSC", "01SESSA", "01SESSB"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, "dup@example.com", "hash1", "First")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero user id")
	}

	if _, err := s.CreateUser(ctx, "dup@example.com", "hash2", "Second"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	u, err := s.UserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if u == nil || u.PasswordHash != "hash1" {
		t.Fatalf("duplicate registration must not replace the record: %+v", u)
	}
}

func TestUserByEmail_MissingIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	u, err := s.UserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := &models.Job{
		ID:        "01JOBTEST00000000000000000",
		UserID:    9,
		SessionID: "01SESSJOB0000000000000000",
		Prompt:    "hello",
		Status:    models.JobQueued,
	}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := s.MarkJobRunning(ctx, job.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := s.MarkJobSucceeded(ctx, job.ID, 42); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != models.JobSucceeded {
		t.Fatalf("expected succeeded, got %q", got.Status)
	}
	if got.ResultTurnID == nil || *got.ResultTurnID != 42 {
		t.Fatalf("expected result turn id 42, got %+v", got.ResultTurnID)
	}
}

func TestGetJob_MissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetJob(context.Background(), "01JOBMISSING0000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing record must not read as tier outage: %v", err)
	}
}
