package store

import (
	"context"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurgeUserData hard-deletes the user's record and every row it owns, and
// returns the per-table counts captured before deletion.
func (s *Store) PurgeUserData(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.DB.WithContext(ctx)

		owned := []struct {
			label string
			model any
		}{
			{"refreshTokens", &domain.RefreshToken{}},
			{"blacklistedAccessTokens", &domain.BlacklistedAccessToken{}},
			{"loginHistory", &domain.LoginHistory{}},
			{"passwordHistory", &domain.PasswordHistory{}},
			{"backupCodes", &domain.BackupCode{}},
			{"emailVerifications", &domain.EmailVerification{}},
			{"passwordResets", &domain.PasswordReset{}},
		}

		count := func(label string, query *gorm.DB) error {
			var total int64
			if err := query.Count(&total).Error; err != nil {
				return err
			}
			deleted[label] = total
			return nil
		}

		if err := count("users", db.Model(&domain.User{}).Where("id = ?", userID)); err != nil {
			return err
		}
		if deleted["users"] == 0 {
			return ErrRecordNotFound
		}
		for _, o := range owned {
			if err := count(o.label, db.Model(o.model).Where("user_id = ?", userID)); err != nil {
				return err
			}
			if err := db.Where("user_id = ?", userID).Delete(o.model).Error; err != nil {
				return err
			}
		}

		return db.Where("id = ?", userID).Delete(&domain.User{}).Error
	})

	return deleted, err
}
