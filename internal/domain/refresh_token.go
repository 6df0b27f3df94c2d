package domain

import "time"

type RefreshToken struct {
	ID        RefreshTokenID `gorm:"type:uuid;primaryKey" db:"id"`
	Token     string         `gorm:"type:text;not null;uniqueIndex:ux_refresh_tokens_token" db:"token"`
	UserID    UserID         `gorm:"type:uuid;not null;index" db:"user_id"`
	UserAgent string         `gorm:"type:text" db:"user_agent"`
	IP        string         `gorm:"type:text" db:"ip"`
	IssuedAt  time.Time      `gorm:"not null" db:"issued_at"`
	ExpiresAt time.Time      `gorm:"not null;index" db:"expires_at"`
	RevokedAt *time.Time     `gorm:"index" db:"revoked_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.FailureReason(now) == ""
}

// FailureReason reports why the token cannot be exchanged at now, or "" when
// it is usable. Revocation takes precedence over expiry.
func (t *RefreshToken) FailureReason(now time.Time) VerifyReason {
	switch {
	case t.RevokedAt != nil:
		return VerifyRevoked
	case !now.Before(t.ExpiresAt):
		return VerifyExpired
	default:
		return ""
	}
}

// DeviceInfo is the client metadata bound to a refresh token.
type DeviceInfo struct {
	UserAgent string
	IP        string
}

// VerifyReason explains why a refresh token failed verification.
type VerifyReason string

const (
	VerifyNotFound VerifyReason = "not_found"
	VerifyRevoked  VerifyReason = "revoked"
	VerifyExpired  VerifyReason = "expired"
)

// VerifyFailure is returned by refresh token verification. It unwraps to the
// matching typed error so callers can branch on either.
type VerifyFailure struct {
	Reason VerifyReason
}

func (f *VerifyFailure) Error() string { return "refresh token " + string(f.Reason) }

func (f *VerifyFailure) Unwrap() error {
	if f.Reason == VerifyExpired {
		return ErrRefreshTokenExpired
	}
	return ErrInvalidRefreshToken
}

// Session is the caller-facing view of an active refresh token.
type Session struct {
	ID           RefreshTokenID `json:"id"`
	TokenPreview string         `json:"tokenPreview"`
	Device       string         `json:"device"`
	UserAgent    string         `json:"userAgent"`
	IP           string         `json:"ip"`
	IssuedAt     time.Time      `json:"issuedAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

type BlacklistedAccessToken struct {
	TokenDigest string    `gorm:"type:text;primaryKey" db:"token_digest"`
	UserID      UserID    `gorm:"type:uuid;not null;index" db:"user_id"`
	ExpiresAt   time.Time `gorm:"not null;index" db:"expires_at"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at"`
}

func (BlacklistedAccessToken) TableName() string { return "blacklisted_access_tokens" }
