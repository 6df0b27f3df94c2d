package domain

import "time"

type User struct {
	ID                 UserID     `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email              string     `gorm:"type:text;not null;uniqueIndex:ux_users_email" db:"email" json:"email"`
	PasswordHash       string     `gorm:"type:text;not null" db:"password_hash" json:"-"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verifiedAt,omitempty"`
	DisabledAt         *time.Time `db:"disabled_at" json:"-"`
	TwoFactorSecret    *string    `gorm:"type:text" db:"two_factor_secret" json:"-"`
	TwoFactorEnabledAt *time.Time `db:"two_factor_enabled_at" json:"twoFactorEnabledAt,omitempty"`
	FailedAttempts     int        `gorm:"not null;default:0" db:"failed_attempts" json:"-"`
	LockedUntil        *time.Time `db:"locked_until" json:"-"`
	PasswordChangedAt  time.Time  `gorm:"not null" db:"password_changed_at" json:"passwordChangedAt"`
	CreatedAt          time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) IsDisabled() bool { return u.DisabledAt != nil }

func (u *User) TwoFactorEnabled() bool { return u.TwoFactorEnabledAt != nil && u.TwoFactorSecret != nil }

// TwoFactorPending reports a generated but unconfirmed secret.
func (u *User) TwoFactorPending() bool { return u.TwoFactorEnabledAt == nil && u.TwoFactorSecret != nil }

// EmailVerification and PasswordReset store only the SHA-256 digest of the
// mailed token.
type EmailVerification struct {
	TokenDigest string    `gorm:"type:text;primaryKey" db:"token_digest"`
	UserID      UserID    `gorm:"type:uuid;not null;index" db:"user_id"`
	ExpiresAt   time.Time `gorm:"not null;index" db:"expires_at"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at"`
}

func (EmailVerification) TableName() string { return "email_verifications" }

type PasswordReset struct {
	TokenDigest string    `gorm:"type:text;primaryKey" db:"token_digest"`
	UserID      UserID    `gorm:"type:uuid;not null;index" db:"user_id"`
	ExpiresAt   time.Time `gorm:"not null;index" db:"expires_at"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at"`
}

func (PasswordReset) TableName() string { return "password_resets" }
