package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoginHistoryStore struct{ db *gorm.DB }

func (s *Store) LoginHistory() *LoginHistoryStore { return &LoginHistoryStore{s.DB} }

func (ls *LoginHistoryStore) Append(ctx context.Context, h *domain.LoginHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return ls.db.WithContext(ctx).Create(h).Error
}

func (ls *LoginHistoryStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LoginHistory, error) {
	var out []domain.LoginHistory
	err := ls.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountFailedSince counts the user's failed attempts at or after since.
func (ls *LoginHistoryStore) CountFailedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := ls.db.WithContext(ctx).Model(&domain.LoginHistory{}).
		Where("user_id = ? AND success = ? AND created_at >= ?", userID, false, since).
		Count(&n).Error
	return n, err
}

func (ls *LoginHistoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := ls.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.LoginHistory{})
	return tx.RowsAffected, tx.Error
}
