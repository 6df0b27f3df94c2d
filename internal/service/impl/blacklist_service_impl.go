package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"authcore/internal/domain"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

var _ service.BlacklistService = (*BlacklistServiceImpl)(nil)

const (
	blacklistKeyPrefix = "abl:"
	blacklistCacheSize = 4096
)

// BlacklistServiceImpl records revoked access tokens until they expire.
//
// The database is authoritative. An optional redis mirror lets other
// instances answer without a query, and a process-local LRU holds positive
// hits only, which stay true until the token expires.
type BlacklistServiceImpl struct {
	store *store.Store
	redis *redis.Client
	cache *lru.Cache[string, time.Time]
	now   func() time.Time
}

// NewBlacklistService builds the service. rdb may be nil.
func NewBlacklistService(st *store.Store, rdb *redis.Client) (*BlacklistServiceImpl, error) {
	cache, err := lru.New[string, time.Time](blacklistCacheSize)
	if err != nil {
		return nil, err
	}
	return &BlacklistServiceImpl{store: st, redis: rdb, cache: cache}, nil
}

func (b *BlacklistServiceImpl) nowTime() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now().UTC()
}

// Add blacklists token until expiresAt. Adding the same token twice is a no-op.
func (b *BlacklistServiceImpl) Add(ctx context.Context, token string, userID domain.UserID, expiresAt time.Time) error {
	if token == "" {
		return domain.ErrInvalidAccessToken
	}
	key := digest(token)
	entry := &domain.BlacklistedAccessToken{
		TokenDigest: key,
		UserID:      userID,
		ExpiresAt:   expiresAt.UTC(),
		CreatedAt:   b.nowTime(),
	}
	if err := b.store.Blacklist().Add(ctx, entry); err != nil {
		return err
	}
	b.cache.Add(key, entry.ExpiresAt)

	if ttl := entry.ExpiresAt.Sub(b.nowTime()); b.redis != nil && ttl > 0 {
		if err := b.redis.SetNX(ctx, blacklistKeyPrefix+key, userID.String(), ttl).Err(); err != nil {
			slog.Warn("blacklist mirror write failed", "error", err)
		}
	}
	return nil
}

func (b *BlacklistServiceImpl) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := digest(token)
	now := b.nowTime()

	if exp, ok := b.cache.Get(key); ok {
		if now.Before(exp) {
			metrics.BlacklistChecksTotal.WithLabelValues("cache", "hit").Inc()
			return true, nil
		}
		b.cache.Remove(key)
	}

	if b.redis != nil {
		n, err := b.redis.Exists(ctx, blacklistKeyPrefix+key).Result()
		switch {
		case err != nil:
			slog.Warn("blacklist mirror read failed, falling back to database", "error", err)
		case n > 0:
			metrics.BlacklistChecksTotal.WithLabelValues("redis", "hit").Inc()
			return true, nil
		}
	}

	entry, err := b.store.Blacklist().Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			metrics.BlacklistChecksTotal.WithLabelValues("db", "miss").Inc()
			return false, nil
		}
		return false, err
	}
	if !now.Before(entry.ExpiresAt) {
		metrics.BlacklistChecksTotal.WithLabelValues("db", "expired").Inc()
		return false, nil
	}
	b.cache.Add(key, entry.ExpiresAt)
	metrics.BlacklistChecksTotal.WithLabelValues("db", "hit").Inc()
	return true, nil
}

// Cleanup drops entries whose token has expired. Redis expires its own keys.
func (b *BlacklistServiceImpl) Cleanup(ctx context.Context) (int64, error) {
	n, err := b.store.Blacklist().DeleteExpired(ctx, b.nowTime())
	if err != nil {
		return 0, err
	}
	metrics.CleanupDeletedTotal.WithLabelValues("access_blacklist").Add(float64(n))
	return n, nil
}

// Stats reports entry counts for operators.
func (b *BlacklistServiceImpl) Stats(ctx context.Context) (store.BlacklistStats, error) {
	return b.store.Blacklist().Stats(ctx, b.nowTime())
}
