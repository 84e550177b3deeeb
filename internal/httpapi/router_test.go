package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/vinaysb/mindcare-navigator/internal/auth"
	"github.com/vinaysb/mindcare-navigator/internal/config"
	"github.com/vinaysb/mindcare-navigator/internal/store"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.SQLStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.NewSQLStore(db)
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	cfg := config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		// No provider credentials and no local model listening: the chat
		// path exercises the keyword responder.
		OllamaBaseURL:    "http://127.0.0.1:1",
		OllamaModel:      "llama3.2",
		FallbackProvider: "ollama",
	}
	return NewRouter(cfg, st, store.ModePrimary, nil), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestRegisterLoginAndTokenSubject(t *testing.T) {
	r, st := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"email": "rt@example.com", "password": "pw123456", "name": "RT",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
	if resp["token"] == "" {
		t.Fatalf("register: expected token, got %v", resp)
	}

	w, resp = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email": "rt@example.com", "password": "pw123456",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	tok, _ := resp["token"].(string)
	if tok == "" {
		t.Fatalf("login: expected token, got %v", resp)
	}

	uid, err := auth.ParseJWT(tok, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	u, err := st.UserByEmail(context.Background(), "rt@example.com")
	if err != nil || u == nil {
		t.Fatalf("user by email: %v", err)
	}
	if uid != u.ID {
		t.Fatalf("token subject %d does not match user id %d", uid, u.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	body := gin.H{"email": "dup-rt@example.com", "password": "pw", "name": "A"}
	if w, _ := doJSON(t, r, http.MethodPost, "/api/register", "", body); w.Code != http.StatusOK {
		t.Fatalf("first register: status %d", w.Code)
	}
	w, _ := doJSON(t, r, http.MethodPost, "/api/register", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email": "nobody-rt@example.com", "password": "x",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestChat_GuestAlwaysGetsReply(t *testing.T) {
	r, _ := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/chat", "", gin.H{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat: status %d body %s", w.Code, w.Body.String())
	}
	reply, _ := resp["reply"].(string)
	if reply == "" {
		t.Fatalf("chat must never return an empty reply: %v", resp)
	}
	if resp["sentiment"] != "neutral" {
		t.Fatalf("expected neutral sentiment from responder, got %v", resp["sentiment"])
	}
	sid, _ := resp["session_id"].(string)
	if len(sid) != 26 {
		t.Fatalf("expected generated session id, got %q", sid)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/chat", "", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHistoryAndSessions_RequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	if w, _ := doJSON(t, r, http.MethodGet, "/api/history/abc", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("history without token: expected 401, got %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodGet, "/api/sessions", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("sessions without token: expected 401, got %d", w.Code)
	}
}

func TestChatThenHistoryRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"email": "hist-rt@example.com", "password": "pw", "name": "H",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d", w.Code)
	}
	tok, _ := resp["token"].(string)

	w, resp = doJSON(t, r, http.MethodPost, "/api/chat", tok, gin.H{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat: status %d", w.Code)
	}
	sid, _ := resp["session_id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/history/"+sid, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	hw := httptest.NewRecorder()
	r.ServeHTTP(hw, req)
	if hw.Code != http.StatusOK {
		t.Fatalf("history: status %d", hw.Code)
	}

	var turns []map[string]any
	if err := json.Unmarshal(hw.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0]["role"] != "user" || turns[0]["content"] != "hello" {
		t.Fatalf("unexpected first turn %v", turns[0])
	}
	if turns[1]["role"] != "assistant" {
		t.Fatalf("unexpected second turn %v", turns[1])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	sw := httptest.NewRecorder()
	r.ServeHTTP(sw, req)
	if sw.Code != http.StatusOK {
		t.Fatalf("sessions: status %d", sw.Code)
	}
	var ids []string
	if err := json.Unmarshal(sw.Body.Bytes(), &ids); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != sid {
		t.Fatalf("expected [%s], got %v", sid, ids)
	}
}
