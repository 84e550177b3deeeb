package ai

import (
	"context"
	"errors"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a text-generation backend. Chat returns the assistant reply for
// the given conversation. All network failures, malformed responses and empty
// replies come back as errors; nothing panics past this boundary.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ErrEmptyReply marks a provider response that parsed cleanly but carried no
// usable text. The cascade treats it like any other provider failure.
var ErrEmptyReply = errors.New("ai: provider returned empty reply")
