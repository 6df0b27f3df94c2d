package service

import (
	"context"

	"authcore/internal/domain"
)

// MFAService is the two-factor state machine.
type MFAService interface {
	Enable(ctx context.Context, userID domain.UserID) (*domain.TwoFactorEnrollment, error)
	Confirm(ctx context.Context, userID domain.UserID, code string) error
	Verify(ctx context.Context, userID domain.UserID, code string) (bool, error)
	Disable(ctx context.Context, userID domain.UserID, password, code string) error
	ConsumeBackupCode(ctx context.Context, userID domain.UserID, code string) (bool, error)
}
