package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vinaysb/mindcare-navigator/internal/ai"
	"github.com/vinaysb/mindcare-navigator/internal/common"
	"github.com/vinaysb/mindcare-navigator/internal/memory"
	"github.com/vinaysb/mindcare-navigator/internal/models"
	"github.com/vinaysb/mindcare-navigator/internal/sentiment"
	"github.com/vinaysb/mindcare-navigator/internal/store"
)

const safeSystemPrompt = "You are MindCare Navigator, a supportive, non-diagnostic assistant. " +
	"Provide empathetic, grounded guidance for emotional support, stress relief, and resource navigation. " +
	"Do not provide medical diagnoses or therapy. Encourage professional help when needed and share " +
	"region-agnostic, general resources. Keep responses short, kind, and actionable. " +
	"Begin every reply with a tag of the exact form [MOOD: <label>] where <label> is one of " +
	"happy, sad, anxious, angry, calm, neutral, describing the user's current mood."

type Result struct {
	Reply     string
	Sentiment sentiment.Label
	SessionID string
	Provider  string
	// AssistantTurnID is 0 when persistence was skipped or degraded.
	AssistantTurnID uint64
}

// Service composes session memory, the provider cascade, sentiment
// extraction and best-effort persistence into one request/response cycle.
type Service struct {
	store   store.Store
	cascade *ai.Cascade
	memory  *memory.Manager
}

func NewService(st store.Store, cascade *ai.Cascade, mem *memory.Manager) *Service {
	return &Service{store: st, cascade: cascade, memory: mem}
}

// Send handles one chat turn. The reply is always non-empty: provider
// failures cascade down to the keyword responder, and persistence failures
// never reach the caller.
func (s *Service) Send(ctx context.Context, userID uint64, sessionID, message, providerPref, lang string) (Result, error) {
	if sessionID == "" {
		sid, err := common.NewULID()
		if err != nil {
			return Result{}, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = sid
	}

	// 1) rolling context for prompt augmentation
	entries := s.memory.Context(ctx, sessionID, userID)

	// 2) provider transcript: system prompt, recent context, new message
	msgs := make([]ai.Message, 0, len(entries)+2)
	msgs = append(msgs, ai.Message{Role: "system", Content: systemPrompt(lang)})
	for _, e := range entries {
		msgs = append(msgs, ai.Message{Role: e.Role, Content: e.Content})
	}
	msgs = append(msgs, ai.Message{Role: "user", Content: message})

	// 3) cascade through providers; never fails
	raw, provider := s.cascade.Generate(ctx, message, msgs, providerPref)

	// 4) split the mood tag from the visible reply; a tag-only reply
	// leaves nothing visible, so the keyword responder covers it
	label, reply := sentiment.Parse(raw)
	if strings.TrimSpace(reply) == "" {
		reply = ai.FallbackReply(message)
	}

	// 5) extend the rolling transcript
	s.memory.Append(sessionID, message, reply)

	// 6) best-effort persistence of both turns
	now := time.Now().UTC()
	s.saveTurn(ctx, &models.Turn{
		SessionID: sessionID, UserID: userID, Role: "user", Content: message, CreatedAt: now,
	})
	assistantTurn := &models.Turn{
		SessionID: sessionID, UserID: userID, Role: "assistant", Content: reply, CreatedAt: now,
	}
	s.saveTurn(ctx, assistantTurn)

	return Result{
		Reply:           reply,
		Sentiment:       label,
		SessionID:       sessionID,
		Provider:        provider,
		AssistantTurnID: assistantTurn.ID,
	}, nil
}

func (s *Service) saveTurn(ctx context.Context, turn *models.Turn) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTurn(ctx, turn); err != nil {
		log.Printf("chat: save turn session=%s role=%s failed: %v", turn.SessionID, turn.Role, err)
	}
}

// History returns the durable transcript, degrading to empty on storage
// failure.
func (s *Service) History(ctx context.Context, userID uint64, sessionID string) []models.Turn {
	if s.store == nil {
		return nil
	}
	turns, err := s.store.History(ctx, userID, sessionID)
	if err != nil {
		log.Printf("chat: history session=%s failed: %v", sessionID, err)
		return nil
	}
	return turns
}

// SessionIDs returns the user's sessions most recent first, degrading to
// empty on storage failure.
func (s *Service) SessionIDs(ctx context.Context, userID uint64) []string {
	if s.store == nil {
		return nil
	}
	ids, err := s.store.SessionIDs(ctx, userID)
	if err != nil {
		log.Printf("chat: session ids user=%d failed: %v", userID, err)
		return nil
	}
	return ids
}

func systemPrompt(lang string) string {
	if lang == "" {
		return safeSystemPrompt
	}
	return safeSystemPrompt + " Respond in " + lang + "."
}
