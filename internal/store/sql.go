package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vinaysb/mindcare-navigator/internal/models"
	"gorm.io/gorm"
)

// SQLStore is the primary relational store over gorm. Tests back it with
// in-memory sqlite; production uses MySQL.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Turn{}, &models.Job{})
}

func (s *SQLStore) SaveTurn(ctx context.Context, turn *models.Turn) error {
	if err := s.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) History(ctx context.Context, userID uint64, sessionID string) ([]models.Turn, error) {
	var turns []models.Turn
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id ASC").
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return turns, nil
}

func (s *SQLStore) SessionIDs(ctx context.Context, userID uint64) ([]string, error) {
	var rows []struct {
		SessionID string
		LastID    uint64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Turn{}).
		Select("session_id, MAX(id) AS last_id").
		Where("user_id = ?", userID).
		Group("session_id").
		Order("last_id DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SessionID)
	}
	return ids, nil
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, email, passwordHash, name string) (uint64, error) {
	existing, err := s.UserByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrDuplicateEmail
	}

	u := models.User{Email: email, PasswordHash: passwordHash, Name: name}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return u.ID, nil
}

// isDuplicateKey catches races past the pre-check. Error text differs per
// driver (MySQL 1062 vs sqlite UNIQUE), so match both.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

func (s *SQLStore) CreateJob(ctx context.Context, job *models.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &j, nil
}

func (s *SQLStore) MarkJobRunning(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobQueued).
		Update("status", models.JobRunning).Error
}

func (s *SQLStore) MarkJobSucceeded(ctx context.Context, id string, turnID uint64) error {
	return s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         models.JobSucceeded,
			"result_turn_id": turnID,
			"error":          nil,
		}).Error
}

func (s *SQLStore) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         models.JobFailed,
			"error":          errMsg,
			"result_turn_id": nil,
		}).Error
}
