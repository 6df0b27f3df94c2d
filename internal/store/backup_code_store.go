package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BackupCodeStore struct{ db *gorm.DB }

func (s *Store) BackupCodes() *BackupCodeStore { return &BackupCodeStore{s.DB} }

// Replace drops every existing code for the user and stores the new set.
func (bs *BackupCodeStore) Replace(ctx context.Context, userID uuid.UUID, codes []domain.BackupCode) error {
	db := bs.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Delete(&domain.BackupCode{}).Error; err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}
	for i := range codes {
		if codes[i].ID == uuid.Nil {
			codes[i].ID = uuid.New()
		}
	}
	return db.Create(&codes).Error
}

func (bs *BackupCodeStore) ListUnused(ctx context.Context, userID uuid.UUID) ([]domain.BackupCode, error) {
	var out []domain.BackupCode
	err := bs.db.WithContext(ctx).
		Where("user_id = ? AND used_at IS NULL", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// MarkUsed flags the code as used unless another request got there first.
func (bs *BackupCodeStore) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tx := bs.db.WithContext(ctx).
		Model(&domain.BackupCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	return tx.RowsAffected == 1, tx.Error
}

func (bs *BackupCodeStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := bs.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.BackupCode{})
	return tx.RowsAffected, tx.Error
}
