package domain

import "time"

type LoginHistory struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" db:"id" json:"id"`
	UserID        UserID    `gorm:"type:uuid;not null;index" db:"user_id" json:"-"`
	IP            string    `gorm:"type:text" db:"ip" json:"ip"`
	UserAgent     string    `gorm:"type:text" db:"user_agent" json:"userAgent"`
	Success       bool      `gorm:"not null" db:"success" json:"success"`
	FailureReason string    `gorm:"type:text" db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt     time.Time `gorm:"not null;index" db:"created_at" json:"createdAt"`
}

func (LoginHistory) TableName() string { return "login_history" }

type PasswordHistory struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" db:"id"`
	UserID       UserID    `gorm:"type:uuid;not null;index" db:"user_id"`
	PasswordHash string    `gorm:"type:text;not null" db:"password_hash"`
	CreatedAt    time.Time `gorm:"not null" db:"created_at"`
}

func (PasswordHistory) TableName() string { return "password_history" }

// LockState is the outcome of recording a failed attempt.
type LockState struct {
	Locked      bool
	Attempts    int
	LockedUntil *time.Time
}

// LockStatus is the outcome of a lockout check.
type LockStatus struct {
	Locked           bool
	LockedUntil      *time.Time
	MinutesRemaining int
}

// StrengthResult is advisory password feedback.
type StrengthResult struct {
	Score      int      `json:"score"`
	Level      string   `json:"level"`
	Feedback   []string `json:"feedback"`
	Acceptable bool     `json:"acceptable"`
}
