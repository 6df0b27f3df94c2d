package domain

import (
	"errors"
	"time"
)

// Kind classifies failures so transports can map them consistently.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindBadRequest
	KindReuseDetected
	KindLocked
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	case KindReuseDetected:
		return "reuse_detected"
	case KindLocked:
		return "locked"
	default:
		return "internal"
	}
}

// Error is a typed failure with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches the exact sentinel, or any error of the same kind when target is
// one of the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Code == "" && t.Kind == e.Kind
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Kind sentinels. errors.Is(err, ErrNotFound) holds for every NotFound error.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "conflict"}
	ErrBadRequest    = &Error{Kind: KindBadRequest, Message: "bad request"}
	ErrReuseDetected = &Error{Kind: KindReuseDetected, Message: "reuse detected"}
	ErrLocked        = &Error{Kind: KindLocked, Message: "locked"}
)

var (
	ErrUserNotFound         = newError(KindNotFound, "user_not_found", "user not found")
	ErrSessionNotFound      = newError(KindNotFound, "session_not_found", "session not found")
	ErrInvalidCredentials   = newError(KindUnauthorized, "invalid_credentials", "invalid credentials")
	ErrUserDisabled         = newError(KindUnauthorized, "user_disabled", "user disabled")
	ErrInvalidAccessToken   = newError(KindUnauthorized, "invalid_access_token", "invalid access token")
	ErrAccessTokenRevoked   = newError(KindUnauthorized, "access_token_revoked", "access token revoked")
	ErrInvalidRefreshToken  = newError(KindUnauthorized, "invalid_refresh_token", "invalid refresh token")
	ErrRefreshTokenExpired  = newError(KindUnauthorized, "refresh_token_expired", "refresh token expired")
	ErrTwoFactorRequired    = newError(KindUnauthorized, "two_factor_required", "two-factor code required")
	ErrInvalidTwoFactorCode = newError(KindUnauthorized, "invalid_two_factor_code", "invalid two-factor code")
	ErrEmailTaken           = newError(KindConflict, "email_taken", "email already registered")
	ErrTwoFactorEnabled     = newError(KindConflict, "two_factor_already_enabled", "two-factor already enabled")
	ErrInvalidEmail         = newError(KindBadRequest, "invalid_email", "invalid email")
	ErrMissingCredentials   = newError(KindBadRequest, "missing_credentials", "email and password are required")
	ErrPasswordTooShort     = newError(KindBadRequest, "password_too_short", "password too short")
	ErrPasswordReused       = newError(KindBadRequest, "password_reused", "password was used recently")
	ErrInvalidToken         = newError(KindBadRequest, "invalid_token", "invalid or expired token")
	ErrTwoFactorNotPending  = newError(KindBadRequest, "two_factor_not_pending", "two-factor setup not started")
	ErrTwoFactorNotEnabled  = newError(KindBadRequest, "two_factor_not_enabled", "two-factor not enabled")
	ErrRefreshTokenReuse    = newError(KindReuseDetected, "refresh_token_reuse", "refresh token reuse detected")
	ErrAccountLocked        = newError(KindLocked, "account_locked", "account temporarily locked")
)

// LockedError carries the lockout horizon alongside ErrAccountLocked.
type LockedError struct {
	LockedUntil      time.Time
	MinutesRemaining int
}

func (e *LockedError) Error() string { return ErrAccountLocked.Message }

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf reports the stable code of err, or "internal_error".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return "internal_error"
}
