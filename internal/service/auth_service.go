package service

import (
	"context"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/jwtsigner"
)

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest, device domain.DeviceInfo) (*dto.RegisterResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, userID domain.UserID) error
	Login(ctx context.Context, r dto.LoginRequest, device domain.DeviceInfo) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string, device domain.DeviceInfo) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*jwtsigner.Claims, error)

	ListSessions(ctx context.Context, userID domain.UserID) ([]domain.Session, error)
	RevokeSession(ctx context.Context, userID domain.UserID, sessionID domain.RefreshTokenID) error
	RevokeOtherSessions(ctx context.Context, userID domain.UserID, current domain.RefreshTokenID) (int64, error)
	LoginHistory(ctx context.Context, userID domain.UserID, limit int) ([]domain.LoginHistory, error)

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID domain.UserID, current, next string, keepSessionID *domain.RefreshTokenID) error

	Me(ctx context.Context, userID domain.UserID) (*dto.UserResponse, error)
	UpdateEmail(ctx context.Context, userID domain.UserID, email string) (*dto.UserResponse, error)
	FailedLoginAttempts(ctx context.Context, userID domain.UserID, window time.Duration) (int64, error)
	ExportData(ctx context.Context, userID domain.UserID) (*dto.AccountExport, error)
	DisableAccount(ctx context.Context, userID domain.UserID, password, accessToken string) error
}
