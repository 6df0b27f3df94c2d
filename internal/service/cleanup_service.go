package service

import (
	"context"

	"authcore/internal/dto"
)

type CleanupService interface {
	CleanupTokens(ctx context.Context) (dto.CleanupReport, error)
	CleanupLoginHistory(ctx context.Context) (int64, error)
}
