package store

import (
	"context"
	"strings"
	"time"

	"authcore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	usr.Email = strings.ToLower(strings.TrimSpace(usr.Email))
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Update applies column changes; updated_at is always bumped.
func (u *UserStore) Update(ctx context.Context, userID uuid.UUID, changes map[string]any) error {
	changes["updated_at"] = time.Now().UTC()
	tx := u.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(changes)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (u *UserStore) SetVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return u.Update(ctx, userID, map[string]any{"verified_at": at})
}

// UpdateEmail moves the account to a new address, which must be verified
// again. A taken address fails with ErrDuplicate.
func (u *UserStore) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error {
	return u.Update(ctx, userID, map[string]any{
		"email":       strings.ToLower(strings.TrimSpace(email)),
		"verified_at": nil,
	})
}

func (u *UserStore) SetDisabled(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return u.Update(ctx, userID, map[string]any{"disabled_at": at})
}

func (u *UserStore) SetPassword(ctx context.Context, userID uuid.UUID, hash string, changedAt time.Time) error {
	return u.Update(ctx, userID, map[string]any{"password_hash": hash, "password_changed_at": changedAt})
}

// UpdatePasswordHash replaces the stored hash without touching password_changed_at (rehash on login).
func (u *UserStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	return u.Update(ctx, userID, map[string]any{"password_hash": hash})
}

// IncrementFailedAttempts bumps the counter in place and returns the new value.
func (u *UserStore) IncrementFailedAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	db := u.db.WithContext(ctx)
	tx := db.Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, ErrRecordNotFound
	}
	var attempts int
	if err := db.Model(&domain.User{}).Where("id = ?", userID).Pluck("failed_attempts", &attempts).Error; err != nil {
		return 0, err
	}
	return attempts, nil
}

func (u *UserStore) SetLockedUntil(ctx context.Context, userID uuid.UUID, until time.Time) error {
	return u.Update(ctx, userID, map[string]any{"locked_until": until})
}

// ResetLockout clears the counter and any lock.
func (u *UserStore) ResetLockout(ctx context.Context, userID uuid.UUID) error {
	return u.Update(ctx, userID, map[string]any{"failed_attempts": 0, "locked_until": nil})
}

// ResetExpiredLockout clears a lock whose window ended before now. It is a
// no-op when another request already reset it.
func (u *UserStore) ResetExpiredLockout(ctx context.Context, userID uuid.UUID, now time.Time) error {
	return u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND locked_until IS NOT NULL AND locked_until <= ?", userID, now).
		Updates(map[string]any{"failed_attempts": 0, "locked_until": nil, "updated_at": now}).Error
}

func (u *UserStore) SetTwoFactorSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	return u.Update(ctx, userID, map[string]any{"two_factor_secret": secret, "two_factor_enabled_at": nil})
}

// EnableTwoFactor moves a pending secret to enabled. It reports false when no
// pending secret exists.
func (u *UserStore) EnableTwoFactor(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	tx := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND two_factor_secret IS NOT NULL AND two_factor_enabled_at IS NULL", userID).
		Updates(map[string]any{"two_factor_enabled_at": at, "updated_at": at})
	return tx.RowsAffected == 1, tx.Error
}

func (u *UserStore) ClearTwoFactor(ctx context.Context, userID uuid.UUID) error {
	return u.Update(ctx, userID, map[string]any{"two_factor_secret": nil, "two_factor_enabled_at": nil})
}
