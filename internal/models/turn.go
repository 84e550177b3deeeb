package models

import "time"

// Turn is one chat-log entry. Turns are append-only; user id 0 marks a
// guest session.
type Turn struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	// Session ids are client-supplied opaque strings; 191 keeps the
	// composite index inside MySQL's utf8mb4 key limit.
	SessionID string    `gorm:"type:varchar(191);not null;index:idx_chat_logs_user_session,priority:2" json:"session_id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_logs_user_session,priority:1" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"ts"`
}

func (Turn) TableName() string { return "chat_logs" }
