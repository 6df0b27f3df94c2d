package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStore holds single-use e-mail verification and password reset tokens.
type VerificationStore struct{ db *gorm.DB }

func (s *Store) Verifications() *VerificationStore { return &VerificationStore{s.DB} }

func (vs *VerificationStore) CreateEmailVerification(ctx context.Context, v *domain.EmailVerification) error {
	return translate(vs.db.WithContext(ctx).Create(v).Error)
}

func (vs *VerificationStore) GetEmailVerification(ctx context.Context, digest string) (*domain.EmailVerification, error) {
	var v domain.EmailVerification
	if err := vs.db.WithContext(ctx).First(&v, "token_digest = ?", digest).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (vs *VerificationStore) DeleteEmailVerifications(ctx context.Context, userID uuid.UUID) error {
	return vs.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.EmailVerification{}).Error
}

func (vs *VerificationStore) CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error {
	return translate(vs.db.WithContext(ctx).Create(r).Error)
}

func (vs *VerificationStore) GetPasswordReset(ctx context.Context, digest string) (*domain.PasswordReset, error) {
	var r domain.PasswordReset
	if err := vs.db.WithContext(ctx).First(&r, "token_digest = ?", digest).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (vs *VerificationStore) DeletePasswordResets(ctx context.Context, userID uuid.UUID) error {
	return vs.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.PasswordReset{}).Error
}

// DeleteExpired prunes both token tables and returns the combined count.
func (vs *VerificationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db := vs.db.WithContext(ctx)
	a := db.Where("expires_at < ?", now).Delete(&domain.EmailVerification{})
	if a.Error != nil {
		return 0, a.Error
	}
	b := db.Where("expires_at < ?", now).Delete(&domain.PasswordReset{})
	if b.Error != nil {
		return a.RowsAffected, b.Error
	}
	return a.RowsAffected + b.RowsAffected, nil
}
