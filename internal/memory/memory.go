// Package memory keeps a bounded, per-session rolling transcript in process
// memory for prompt augmentation. It is volatile: guest sessions start empty
// after a restart, authenticated sessions reseed from durable history.
package memory

import (
	"context"
	"sync"

	"github.com/vinaysb/mindcare-navigator/internal/store"
)

const (
	// maxEntries caps the raw per-session cache after every append.
	maxEntries = 20
	// contextEntries is how much of the tail feeds the prompt.
	contextEntries = 10
)

type Entry struct {
	Role    string
	Content string
}

type sessionState struct {
	mu      sync.Mutex
	entries []Entry
	seeded  bool
}

// Manager serializes access per session so concurrent turns cannot
// interleave appended entries out of order.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	store    store.Store
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*sessionState),
		store:    st,
	}
}

func (m *Manager) session(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		m.sessions[sessionID] = st
	}
	return st
}

// Context returns up to the last 10 transcript entries for the session. On
// the first touch of an authenticated session it seeds the cache from
// durable history; storage failures degrade to an empty seed.
func (m *Manager) Context(ctx context.Context, sessionID string, userID uint64) []Entry {
	st := m.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.seeded {
		st.seeded = true
		if userID != 0 && m.store != nil {
			if turns, err := m.store.History(ctx, userID, sessionID); err == nil {
				for _, t := range turns {
					st.entries = append(st.entries, Entry{Role: t.Role, Content: t.Content})
				}
				st.truncate()
			}
		}
	}

	n := len(st.entries)
	if n > contextEntries {
		n = contextEntries
	}
	out := make([]Entry, n)
	copy(out, st.entries[len(st.entries)-n:])
	return out
}

// Append records one completed exchange with explicit roles, then truncates
// the cache to the newest entries.
func (m *Manager) Append(sessionID, userMessage, assistantReply string) {
	st := m.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.seeded = true
	st.entries = append(st.entries,
		Entry{Role: "user", Content: userMessage},
		Entry{Role: "assistant", Content: assistantReply},
	)
	st.truncate()
}

func (st *sessionState) truncate() {
	if len(st.entries) > maxEntries {
		st.entries = append([]Entry(nil), st.entries[len(st.entries)-maxEntries:]...)
	}
}

// Len reports the raw cache size for a session.
func (m *Manager) Len(sessionID string) int {
	st := m.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}
