package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vinaysb/mindcare-navigator/internal/models"
)

// RedisStore is the document tier: turns and users serialized as JSON
// documents under namespaced keys. Used when the relational primary is
// unreachable but Redis still answers.
type RedisStore struct {
	rdb *redis.Client
}

const (
	keyTurns      = "mindcare:turns:%d:%s"  // list of turn documents
	keySessions   = "mindcare:sessions:%d"  // zset session_id -> last activity
	keyUsers      = "mindcare:users"        // hash email -> user document
	keyUserNextID = "mindcare:users:nextid" // counter
)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// EnsureSchema is a no-op; the document tier has no schema to prepare.
func (s *RedisStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (s *RedisStore) SaveTurn(ctx context.Context, turn *models.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, fmt.Sprintf(keyTurns, turn.UserID, turn.SessionID), doc)
	pipe.ZAdd(ctx, fmt.Sprintf(keySessions, turn.UserID), redis.Z{
		Score:  float64(turn.CreatedAt.UnixNano()),
		Member: turn.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, userID uint64, sessionID string) ([]models.Turn, error) {
	docs, err := s.rdb.LRange(ctx, fmt.Sprintf(keyTurns, userID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	turns := make([]models.Turn, 0, len(docs))
	for _, doc := range docs {
		var t models.Turn
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			continue // skip corrupt entries rather than failing the read
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) SessionIDs(ctx context.Context, userID uint64) ([]string, error) {
	ids, err := s.rdb.ZRevRange(ctx, fmt.Sprintf(keySessions, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ids, nil
}

func (s *RedisStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	doc, err := s.rdb.HGet(ctx, keyUsers, email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var u models.User
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &u, nil
}

func (s *RedisStore) CreateUser(ctx context.Context, email, passwordHash, name string) (uint64, error) {
	id, err := s.rdb.Incr(ctx, keyUserNextID).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	u := models.User{
		ID:           uint64(id),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ok, err := s.rdb.HSetNX(ctx, keyUsers, email, doc).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return 0, ErrDuplicateEmail
	}
	return u.ID, nil
}
