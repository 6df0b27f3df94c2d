package dto

import (
	"time"

	"authcore/internal/domain"
)

type UserResponse struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	EmailVerified     bool       `json:"emailVerified"`
	TwoFactorEnabled  bool       `json:"twoFactorEnabled"`
	PasswordChangedAt time.Time  `json:"passwordChangedAt"`
	PasswordExpired   bool       `json:"passwordExpired"`
	CreatedAt         time.Time  `json:"createdAt"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
}

type DisableAccountRequest struct {
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Email string `json:"email"`
}

type FailedAttemptsResponse struct {
	Count             int64 `json:"count"`
	TimeWindowMinutes int   `json:"timeWindowMinutes"`
}

// AccountExport is the user's copy of what the service holds about them.
// Password, two-factor and token secrets are never included.
type AccountExport struct {
	ExportedAt   time.Time             `json:"exportedAt"`
	Profile      UserResponse          `json:"profile"`
	Sessions     []domain.Session      `json:"sessions"`
	LoginHistory []domain.LoginHistory `json:"loginHistory"`
}
