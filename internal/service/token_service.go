package service

import (
	"context"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/jwtsigner"
)

// TokenService is the refresh token ledger.
type TokenService interface {
	Issue(ctx context.Context, userID domain.UserID, device domain.DeviceInfo) (*domain.RefreshToken, error)
	Verify(ctx context.Context, token string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, token string, device domain.DeviceInfo) (*dto.TokenResponse, error)
	IssueAccess(userID domain.UserID, sessionID domain.RefreshTokenID) (string, time.Time, error)
	Revoke(ctx context.Context, tokenID domain.RefreshTokenID) error
	RevokeAll(ctx context.Context, userID domain.UserID, except *domain.RefreshTokenID) (int64, error)
	ListActiveSessions(ctx context.Context, userID domain.UserID) ([]domain.Session, error)
	Cleanup(ctx context.Context) (dto.TokenCleanupCounts, error)
}

// TokenSigner signs and verifies short-lived access tokens.
type TokenSigner interface {
	Sign(c jwtsigner.Claims, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (*jwtsigner.Claims, error)
}
