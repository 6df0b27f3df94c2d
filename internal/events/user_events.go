package events

import "time"

type UserRegistered struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

func (UserRegistered) EventName() string { return "user.registered" }

type AccountLocked struct {
	UserID      string    `json:"userId"`
	Attempts    int       `json:"attempts"`
	LockedUntil time.Time `json:"lockedUntil"`
}

func (AccountLocked) EventName() string { return "account.locked" }

type PasswordChanged struct {
	UserID string    `json:"userId"`
	Reset  bool      `json:"reset"`
	At     time.Time `json:"at"`
}

func (PasswordChanged) EventName() string { return "password.changed" }

type TwoFactorChanged struct {
	UserID  string    `json:"userId"`
	Enabled bool      `json:"enabled"`
	At      time.Time `json:"at"`
}

func (TwoFactorChanged) EventName() string { return "two_factor.changed" }

type AccountDisabled struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

func (AccountDisabled) EventName() string { return "account.disabled" }
