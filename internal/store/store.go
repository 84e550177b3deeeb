// Package store persists chat logs and user records across three backing
// tiers: the relational primary, a Redis document tier, and a local JSON
// file of last resort.
package store

import (
	"context"
	"errors"

	"github.com/vinaysb/mindcare-navigator/internal/models"
)

var (
	// ErrUnavailable means the backing store could not serve the call.
	// Chat-path callers treat it as an empty result; registration and
	// login surface it as a distinct HTTP error.
	ErrUnavailable = errors.New("store: unavailable")

	ErrDuplicateEmail = errors.New("store: email already registered")

	// ErrNotFound means the record does not exist; distinct from the
	// tier being unreachable.
	ErrNotFound = errors.New("store: not found")
)

type Store interface {
	// EnsureSchema is idempotent. A no-op for schemaless tiers.
	EnsureSchema(ctx context.Context) error

	SaveTurn(ctx context.Context, turn *models.Turn) error
	// History returns the session's turns oldest first.
	History(ctx context.Context, userID uint64, sessionID string) ([]models.Turn, error)
	// SessionIDs returns the user's session ids, most recent first.
	SessionIDs(ctx context.Context, userID uint64) ([]string, error)

	// UserByEmail returns (nil, nil) when no such user exists.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email, passwordHash, name string) (uint64, error)
}

// JobStore is the extra surface needed by the async reply path. Only the
// relational tier implements it.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	MarkJobRunning(ctx context.Context, id string) error
	MarkJobSucceeded(ctx context.Context, id string, turnID uint64) error
	MarkJobFailed(ctx context.Context, id string, errMsg string) error
}
