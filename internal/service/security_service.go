package service

import (
	"context"

	"authcore/internal/domain"
)

// SecurityService is the account security policy.
type SecurityService interface {
	RecordFailedAttempt(ctx context.Context, userID domain.UserID) (domain.LockState, error)
	RecordSuccess(ctx context.Context, userID domain.UserID) error
	IsLocked(ctx context.Context, userID domain.UserID) (domain.LockStatus, error)
	CheckPasswordReuse(ctx context.Context, userID domain.UserID, candidate string) error
	AddPasswordHistory(ctx context.Context, userID domain.UserID, hash string) error
	IsPasswordExpired(u *domain.User) bool
	Strength(password string) domain.StrengthResult
}
