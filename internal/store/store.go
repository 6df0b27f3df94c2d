package store

import (
	"context"

	"authcore/internal/domain"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.RefreshToken{},
		&domain.BlacklistedAccessToken{},
		&domain.LoginHistory{},
		&domain.PasswordHistory{},
		&domain.BackupCode{},
		&domain.EmailVerification{},
		&domain.PasswordReset{},
	}
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(Models()...)
}
