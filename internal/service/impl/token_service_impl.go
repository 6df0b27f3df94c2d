package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/events"
	"authcore/internal/jwtsigner"
	"authcore/internal/netutil"
	"authcore/internal/observability/metrics"
	"authcore/internal/observability/middleware"
	"authcore/internal/service"
	"authcore/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

var _ service.TokenService = (*TokenServiceImpl)(nil)

// ====== Config ======

type TokenConfig struct {
	AccessTTL        time.Duration // e.g. 15 * time.Minute
	RefreshTTL       time.Duration // e.g. 7 * 24h
	RevokedRetention time.Duration // how long revoked rows are kept for audit
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		RevokedRetention: 30 * 24 * time.Hour,
	}
}

const tokenPreviewLen = 10

// ====== Service ======

// TokenServiceImpl is the refresh token ledger. Refresh tokens are opaque
// random values stored server side; access tokens are signed and stateless.
type TokenServiceImpl struct {
	cfg    TokenConfig
	store  *store.Store
	signer service.TokenSigner
	events events.Publisher
	now    func() time.Time
}

func NewTokenService(cfg TokenConfig, st *store.Store, signer service.TokenSigner, pub events.Publisher) *TokenServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TokenServiceImpl{cfg: cfg, store: st, signer: signer, events: pub}
}

func (t *TokenServiceImpl) nowTime() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now().UTC()
}

// Issue persists a fresh refresh token for the user.
func (t *TokenServiceImpl) Issue(ctx context.Context, userID domain.UserID, device domain.DeviceInfo) (*domain.RefreshToken, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("issue", result).Inc()
	}()

	tok, err := t.create(ctx, t.store, userID, normalizeDevice(device), t.nowTime())
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("issued refresh token",
		"token_id", tok.ID,
		"user_id", userID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return tok, nil
}

func (t *TokenServiceImpl) create(ctx context.Context, st *store.Store, userID domain.UserID, device domain.DeviceInfo, now time.Time) (*domain.RefreshToken, error) {
	value, err := randomHex(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	tok := &domain.RefreshToken{
		Token:     value,
		UserID:    userID,
		UserAgent: device.UserAgent,
		IP:        device.IP,
		IssuedAt:  now,
		ExpiresAt: now.Add(t.cfg.RefreshTTL),
	}
	if err := st.RefreshTokens().Create(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Verify returns the token when usable, or a *domain.VerifyFailure.
func (t *TokenServiceImpl) Verify(ctx context.Context, token string) (*domain.RefreshToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &domain.VerifyFailure{Reason: domain.VerifyNotFound}
	}
	tok, err := t.store.RefreshTokens().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, &domain.VerifyFailure{Reason: domain.VerifyNotFound}
		}
		return nil, err
	}
	if now := t.nowTime(); !tok.Usable(now) {
		return nil, &domain.VerifyFailure{Reason: tok.FailureReason(now)}
	}
	return tok, nil
}

// Rotate exchanges a refresh token for a new pair. Presenting a revoked token,
// or losing a concurrent rotation of the same token, revokes every active
// token of the owner and fails with domain.ErrRefreshTokenReuse.
func (t *TokenServiceImpl) Rotate(ctx context.Context, token string, device domain.DeviceInfo) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()
	device = normalizeDevice(device)
	now := t.nowTime()

	current, err := t.store.RefreshTokens().GetByToken(ctx, token)
	if err != nil {
		result = "failure"
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, &domain.VerifyFailure{Reason: domain.VerifyNotFound}
		}
		return nil, err
	}
	switch current.FailureReason(now) {
	case domain.VerifyRevoked:
		result = "reuse"
		return nil, t.handleReuse(ctx, current, device)
	case domain.VerifyExpired:
		result = "failure"
		return nil, &domain.VerifyFailure{Reason: domain.VerifyExpired}
	}

	var (
		next  *domain.RefreshToken
		raced bool
	)
	err = t.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().GetByID(ctx, current.UserID)
		if err != nil {
			return err
		}
		if user.IsDisabled() {
			return domain.ErrUserDisabled
		}
		won, err := tx.RefreshTokens().RevokeIfActive(ctx, current.ID, now)
		if err != nil {
			return err
		}
		if !won {
			raced = true
			return nil
		}
		next, err = t.create(ctx, tx, current.UserID, inheritDevice(current, device), now)
		return err
	})
	if err != nil {
		result = "failure"
		return nil, err
	}
	if raced {
		result = "reuse"
		return nil, t.handleReuse(ctx, current, device)
	}

	access, _, err := t.IssueAccess(next.UserID, next.ID)
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("rotated refresh token",
		"old_token_id", current.ID,
		"token_id", next.ID,
		"user_id", next.UserID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return t.pair(access, next), nil
}

func (t *TokenServiceImpl) handleReuse(ctx context.Context, tok *domain.RefreshToken, device domain.DeviceInfo) error {
	now := t.nowTime()
	n, err := t.store.RefreshTokens().RevokeAllForUser(ctx, tok.UserID, nil, now)
	if err != nil {
		return err
	}
	metrics.RefreshReuseDetectedTotal.Inc()
	slog.Warn("refresh token reuse detected",
		"token_id", tok.ID,
		"user_id", tok.UserID,
		"ip", device.IP,
		"revoked", n,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	t.events.Publish(ctx, events.RefreshTokenReused{
		TokenID: tok.ID.String(),
		UserID:  tok.UserID.String(),
		IP:      device.IP,
		Revoked: n,
		At:      now,
	})
	return domain.ErrRefreshTokenReuse
}

// IssueAccess signs an access token bound to the refresh token sessionID.
func (t *TokenServiceImpl) IssueAccess(userID domain.UserID, sessionID domain.RefreshTokenID) (string, time.Time, error) {
	return t.signer.Sign(jwtsigner.Claims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	}, t.cfg.AccessTTL)
}

func (t *TokenServiceImpl) pair(access string, refresh *domain.RefreshToken) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:      access,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		ExpiresIn:        int64(t.cfg.AccessTTL.Seconds()),
		RefreshExpiresAt: refresh.ExpiresAt,
	}
}

// Revoke is idempotent for known tokens and fails with ErrSessionNotFound otherwise.
func (t *TokenServiceImpl) Revoke(ctx context.Context, tokenID domain.RefreshTokenID) error {
	won, err := t.store.RefreshTokens().RevokeIfActive(ctx, tokenID, t.nowTime())
	if err != nil {
		return err
	}
	if won {
		return nil
	}
	if _, err := t.store.RefreshTokens().GetByID(ctx, tokenID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (t *TokenServiceImpl) RevokeAll(ctx context.Context, userID domain.UserID, except *domain.RefreshTokenID) (int64, error) {
	n, err := t.store.RefreshTokens().RevokeAllForUser(ctx, userID, except, t.nowTime())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.events.Publish(ctx, events.SessionRevoked{UserID: userID.String(), Reason: "revoke_all", Count: n, At: t.nowTime()})
	}
	return n, nil
}

func (t *TokenServiceImpl) ListActiveSessions(ctx context.Context, userID domain.UserID) ([]domain.Session, error) {
	rows, err := t.store.RefreshTokens().ListActive(ctx, userID, t.nowTime())
	if err != nil {
		return nil, err
	}
	out := make([]domain.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Session{
			ID:           r.ID,
			TokenPreview: netutil.TokenPreview(r.Token, tokenPreviewLen),
			Device:       netutil.ClassifyDevice(r.UserAgent),
			UserAgent:    r.UserAgent,
			IP:           r.IP,
			IssuedAt:     r.IssuedAt,
			ExpiresAt:    r.ExpiresAt,
		})
	}
	return out, nil
}

// Cleanup removes rows no request can still validate: tokens revoked before
// the retention horizon and tokens that expired without being revoked.
func (t *TokenServiceImpl) Cleanup(ctx context.Context) (dto.TokenCleanupCounts, error) {
	var out dto.TokenCleanupCounts
	now := t.nowTime()

	revoked, err := t.store.RefreshTokens().DeleteRevokedBefore(ctx, now.Add(-t.cfg.RevokedRetention))
	if err != nil {
		return out, err
	}
	expired, err := t.store.RefreshTokens().DeleteExpiredUnrevoked(ctx, now)
	if err != nil {
		return out, err
	}
	out.DeletedRevoked = revoked
	out.DeletedExpired = expired
	out.Total = revoked + expired

	metrics.CleanupDeletedTotal.WithLabelValues("refresh_revoked").Add(float64(revoked))
	metrics.CleanupDeletedTotal.WithLabelValues("refresh_expired").Add(float64(expired))
	return out, nil
}

// ====== Helpers ======

func inheritDevice(prev *domain.RefreshToken, override domain.DeviceInfo) domain.DeviceInfo {
	out := domain.DeviceInfo{UserAgent: prev.UserAgent, IP: prev.IP}
	if override.UserAgent != "" {
		out.UserAgent = override.UserAgent
	}
	if override.IP != "" {
		out.IP = override.IP
	}
	return out
}

func normalizeDevice(d domain.DeviceInfo) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent: netutil.TruncateUserAgent(strings.TrimSpace(d.UserAgent)),
		IP:        normalizeIP(d.IP),
	}
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}
