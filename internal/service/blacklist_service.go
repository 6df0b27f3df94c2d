package service

import (
	"context"
	"time"

	"authcore/internal/domain"
)

type BlacklistService interface {
	Add(ctx context.Context, token string, userID domain.UserID, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	Cleanup(ctx context.Context) (int64, error)
}
