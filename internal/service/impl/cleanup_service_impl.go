package impl

import (
	"context"
	"log/slog"
	"time"

	"authcore/internal/dto"
	"authcore/internal/observability/metrics"
	"authcore/internal/observability/middleware"
	"authcore/internal/service"
	"authcore/internal/store"
)

var _ service.CleanupService = (*CleanupServiceImpl)(nil)

type CleanupConfig struct {
	LoginHistoryRetention time.Duration
	TokenInterval         time.Duration
	LoginHistoryInterval  time.Duration
}

// CleanupServiceImpl prunes rows past their validity window. Every delete is
// bounded by expiry or retention, so it is safe alongside live traffic.
type CleanupServiceImpl struct {
	cfg       CleanupConfig
	store     *store.Store
	tokens    service.TokenService
	blacklist service.BlacklistService
	now       func() time.Time
}

func NewCleanupService(cfg CleanupConfig, st *store.Store, tokens service.TokenService, blacklist service.BlacklistService) *CleanupServiceImpl {
	return &CleanupServiceImpl{cfg: cfg, store: st, tokens: tokens, blacklist: blacklist}
}

func (c *CleanupServiceImpl) nowTime() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

// CleanupTokens prunes the refresh ledger, the access blacklist and stale
// verification and reset tokens.
func (c *CleanupServiceImpl) CleanupTokens(ctx context.Context) (dto.CleanupReport, error) {
	var report dto.CleanupReport

	refresh, err := c.tokens.Cleanup(ctx)
	if err != nil {
		return report, err
	}
	report.RefreshTokens = refresh

	access, err := c.blacklist.Cleanup(ctx)
	if err != nil {
		return report, err
	}
	report.AccessTokens = access

	verification, err := c.store.Verifications().DeleteExpired(ctx, c.nowTime())
	if err != nil {
		return report, err
	}
	metrics.CleanupDeletedTotal.WithLabelValues("verification").Add(float64(verification))
	report.VerificationTokens = verification

	report.Total = refresh.Total + access + verification
	return report, nil
}

func (c *CleanupServiceImpl) CleanupLoginHistory(ctx context.Context) (int64, error) {
	if c.cfg.LoginHistoryRetention <= 0 {
		return 0, nil
	}
	n, err := c.store.LoginHistory().DeleteBefore(ctx, c.nowTime().Add(-c.cfg.LoginHistoryRetention))
	if err != nil {
		return 0, err
	}
	metrics.CleanupDeletedTotal.WithLabelValues("login_history").Add(float64(n))
	return n, nil
}

// Run executes both jobs on their own cadence until ctx is cancelled. The
// token job also runs once at start.
func (c *CleanupServiceImpl) Run(ctx context.Context) error {
	tokenEvery, historyEvery := c.cfg.TokenInterval, c.cfg.LoginHistoryInterval
	if tokenEvery <= 0 {
		tokenEvery = 24 * time.Hour
	}
	if historyEvery <= 0 {
		historyEvery = 7 * 24 * time.Hour
	}
	tokenTick := time.NewTicker(tokenEvery)
	defer tokenTick.Stop()
	historyTick := time.NewTicker(historyEvery)
	defer historyTick.Stop()

	c.runTokens(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tokenTick.C:
			c.runTokens(ctx)
		case <-historyTick.C:
			c.runLoginHistory(ctx)
		}
	}
}

func (c *CleanupServiceImpl) runTokens(ctx context.Context) {
	jobCtx := middleware.NewJobContext(ctx, "cleanup_tokens")
	report, err := c.CleanupTokens(jobCtx)
	if err != nil {
		slog.Error("token cleanup failed", "error", err, "request_id", middleware.RequestIDFromContext(jobCtx))
		return
	}
	slog.Info("token cleanup finished",
		"refresh_revoked", report.RefreshTokens.DeletedRevoked,
		"refresh_expired", report.RefreshTokens.DeletedExpired,
		"access_tokens", report.AccessTokens,
		"verification_tokens", report.VerificationTokens,
		"total", report.Total,
		"request_id", middleware.RequestIDFromContext(jobCtx),
	)
}

func (c *CleanupServiceImpl) runLoginHistory(ctx context.Context) {
	jobCtx := middleware.NewJobContext(ctx, "cleanup_login_history")
	n, err := c.CleanupLoginHistory(jobCtx)
	if err != nil {
		slog.Error("login history cleanup failed", "error", err, "request_id", middleware.RequestIDFromContext(jobCtx))
		return
	}
	slog.Info("login history cleanup finished", "deleted", n, "request_id", middleware.RequestIDFromContext(jobCtx))
}
