package store

import (
	"context"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefreshTokenStore struct{ db *gorm.DB }

func (s *Store) RefreshTokens() *RefreshTokenStore { return &RefreshTokenStore{s.DB} }

func (rs *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return translate(rs.db.WithContext(ctx).Create(t).Error)
}

func (rs *RefreshTokenStore) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := rs.db.WithContext(ctx).First(&t, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (rs *RefreshTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := rs.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// RevokeIfActive is the compare-and-swap used by rotation: it sets revoked_at
// only while it is still NULL and reports whether this call won.
func (rs *RefreshTokenStore) RevokeIfActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tx := rs.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return tx.RowsAffected == 1, tx.Error
}

func (rs *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID, at time.Time) (int64, error) {
	q := rs.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if except != nil {
		q = q.Where("id <> ?", *except)
	}
	tx := q.Update("revoked_at", at)
	return tx.RowsAffected, tx.Error
}

// ListActive returns usable tokens, newest first.
func (rs *RefreshTokenStore) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.RefreshToken, error) {
	var out []domain.RefreshToken
	err := rs.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Order("issued_at DESC").
		Find(&out).Error
	return out, err
}

func (rs *RefreshTokenStore) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	err := rs.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Count(&n).Error
	return n, err
}

func (rs *RefreshTokenStore) DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := rs.db.WithContext(ctx).
		Where("revoked_at IS NOT NULL AND revoked_at < ?", cutoff).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}

func (rs *RefreshTokenStore) DeleteExpiredUnrevoked(ctx context.Context, now time.Time) (int64, error) {
	tx := rs.db.WithContext(ctx).
		Where("revoked_at IS NULL AND expires_at < ?", now).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}
