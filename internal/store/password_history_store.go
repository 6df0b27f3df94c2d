package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasswordHistoryStore struct{ db *gorm.DB }

func (s *Store) PasswordHistory() *PasswordHistoryStore { return &PasswordHistoryStore{s.DB} }

// Recent returns up to limit hashes, newest first.
func (ps *PasswordHistoryStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistory, error) {
	var out []domain.PasswordHistory
	err := ps.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Add appends hash and deletes everything older than the newest keep entries.
func (ps *PasswordHistoryStore) Add(ctx context.Context, userID uuid.UUID, hash string, keep int) error {
	db := ps.db.WithContext(ctx)
	if err := db.Create(&domain.PasswordHistory{
		UserID:       userID,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}).Error; err != nil {
		return err
	}

	var keepIDs []uint64
	if err := db.Model(&domain.PasswordHistory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error; err != nil {
		return err
	}
	if len(keepIDs) == 0 {
		return nil
	}
	return db.Where("user_id = ? AND id NOT IN ?", userID, keepIDs).Delete(&domain.PasswordHistory{}).Error
}
