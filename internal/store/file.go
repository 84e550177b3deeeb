package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/vinaysb/mindcare-navigator/internal/models"
)

// FileStore serializes every record to one JSON document, rewritten on each
// mutation. Calls go read-modify-write under an in-process mutex plus a
// cross-process flock, so concurrent writers (or a second service instance
// sharing the file) cannot lose updates.
type FileStore struct {
	path string
	mu   sync.Mutex
	fl   *flock.Flock
}

type fileDoc struct {
	NextUserID uint64        `json:"next_user_id"`
	NextTurnID uint64        `json:"next_turn_id"`
	Users      []models.User `json:"users"`
	Turns      []models.Turn `json:"turns"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		fl:   flock.New(path + ".lock"),
	}
}

// EnsureSchema only makes sure the parent directory exists.
func (s *FileStore) EnsureSchema(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *FileStore) SaveTurn(ctx context.Context, turn *models.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	return s.update(ctx, func(doc *fileDoc) error {
		doc.NextTurnID++
		turn.ID = doc.NextTurnID
		doc.Turns = append(doc.Turns, *turn)
		return nil
	})
}

func (s *FileStore) History(ctx context.Context, userID uint64, sessionID string) ([]models.Turn, error) {
	doc, unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var turns []models.Turn
	for _, t := range doc.Turns {
		if t.UserID == userID && t.SessionID == sessionID {
			turns = append(turns, t)
		}
	}
	return turns, nil
}

func (s *FileStore) SessionIDs(ctx context.Context, userID uint64) ([]string, error) {
	doc, unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Turns are append-only, so the last occurrence of a session id marks
	// its most recent activity.
	lastSeen := make(map[string]int)
	for i, t := range doc.Turns {
		if t.UserID == userID {
			lastSeen[t.SessionID] = i
		}
	}
	ids := make([]string, 0, len(lastSeen))
	for id := range lastSeen {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if lastSeen[ids[j]] > lastSeen[ids[i]] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	return ids, nil
}

func (s *FileStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	doc, unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for i := range doc.Users {
		if doc.Users[i].Email == email {
			u := doc.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (s *FileStore) CreateUser(ctx context.Context, email, passwordHash, name string) (uint64, error) {
	var id uint64
	err := s.update(ctx, func(doc *fileDoc) error {
		for i := range doc.Users {
			if doc.Users[i].Email == email {
				return ErrDuplicateEmail
			}
		}
		doc.NextUserID++
		id = doc.NextUserID
		doc.Users = append(doc.Users, models.User{
			ID:           id,
			Email:        email,
			PasswordHash: passwordHash,
			Name:         name,
			CreatedAt:    time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// read loads the document under both locks and hands back an unlock func.
func (s *FileStore) read(ctx context.Context) (*fileDoc, func(), error) {
	s.mu.Lock()
	if err := s.fl.Lock(); err != nil {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	unlock := func() {
		_ = s.fl.Unlock()
		s.mu.Unlock()
	}

	doc, err := s.load()
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return doc, unlock, nil
}

// update runs one read-modify-write cycle under both locks, writing via a
// temp file and rename so readers never observe a torn document.
func (s *FileStore) update(ctx context.Context, mutate func(*fileDoc) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fl.Lock(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer s.fl.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".chat_store-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) load() (*fileDoc, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDoc{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &doc, nil
}
