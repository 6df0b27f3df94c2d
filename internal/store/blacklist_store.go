package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlacklistStore struct{ db *gorm.DB }

func (s *Store) Blacklist() *BlacklistStore { return &BlacklistStore{s.DB} }

// Add inserts the entry; a duplicate digest is ignored.
func (bs *BlacklistStore) Add(ctx context.Context, e *domain.BlacklistedAccessToken) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := bs.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_digest"}}, DoNothing: true}).
		Create(e).Error
	if IsDuplicate(err) {
		return nil
	}
	return err
}

// Get returns the entry for digest regardless of expiry.
func (bs *BlacklistStore) Get(ctx context.Context, digest string) (*domain.BlacklistedAccessToken, error) {
	var e domain.BlacklistedAccessToken
	if err := bs.db.WithContext(ctx).First(&e, "token_digest = ?", digest).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (bs *BlacklistStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := bs.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.BlacklistedAccessToken{})
	return tx.RowsAffected, tx.Error
}

type BlacklistStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Expired int64 `json:"expired"`
}

func (bs *BlacklistStore) Stats(ctx context.Context, now time.Time) (BlacklistStats, error) {
	var st BlacklistStats
	db := bs.db.WithContext(ctx).Model(&domain.BlacklistedAccessToken{})
	if err := db.Count(&st.Total).Error; err != nil {
		return st, err
	}
	if err := bs.db.WithContext(ctx).Model(&domain.BlacklistedAccessToken{}).
		Where("expires_at >= ?", now).Count(&st.Active).Error; err != nil {
		return st, err
	}
	st.Expired = st.Total - st.Active
	return st, nil
}
