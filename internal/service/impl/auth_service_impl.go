package impl

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"authcore/internal/config"
	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/events"
	"authcore/internal/jwtsigner"
	"authcore/internal/observability/metrics"
	"authcore/internal/observability/middleware"
	"authcore/internal/service"
	"authcore/internal/store"

	"github.com/google/uuid"
)

var _ service.AuthService = (*AuthServiceImpl)(nil)

const (
	verificationTokenBytes = 32
	defaultHistoryLimit    = 20
	maxHistoryLimit        = 100
	exportHistoryLimit     = 50
	defaultFailureWindow   = 15 * time.Minute
	maxFailureWindow       = 30 * 24 * time.Hour
)

// Login history failure reasons.
const (
	reasonUnknownUser     = "unknown_user"
	reasonDisabled        = "disabled"
	reasonLocked          = "locked"
	reasonBadPassword     = "invalid_password"
	reasonTwoFactorNeeded = "two_factor_required"
	reasonBadTwoFactor    = "invalid_two_factor_code"
)

type AuthConfig struct {
	EmailTokenTTL time.Duration
	ResetTokenTTL time.Duration
	Policy        config.Policy
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		EmailTokenTTL: 24 * time.Hour,
		ResetTokenTTL: time.Hour,
		Policy:        config.DefaultPolicy(),
	}
}

// AuthDeps groups the collaborators of AuthServiceImpl.
type AuthDeps struct {
	Store     *store.Store
	Passwords service.PasswordService
	Tokens    service.TokenService
	Signer    service.TokenSigner
	Blacklist service.BlacklistService
	Security  service.SecurityService
	MFA       service.MFAService
	Email     service.EmailService
	Events    events.Publisher
}

// AuthServiceImpl composes the ledger, blacklist, security policy and
// two-factor machine into the user-facing flows.
type AuthServiceImpl struct {
	cfg AuthConfig
	AuthDeps
	now func() time.Time
}

func NewAuthService(cfg AuthConfig, deps AuthDeps) *AuthServiceImpl {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	return &AuthServiceImpl{cfg: cfg, AuthDeps: deps}
}

func (a *AuthServiceImpl) nowTime() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}

// ====== Registration & e-mail verification ======

func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest, device domain.DeviceInfo) (*dto.RegisterResponse, error) {
	result := "success"
	defer func() {
		metrics.AuthRegistrationsTotal.WithLabelValues(result).Inc()
	}()

	email, err := normalizeEmail(r.Email)
	if err != nil {
		result = "invalid"
		return nil, err
	}
	if err := a.checkNewPassword(r.Password); err != nil {
		result = "invalid"
		return nil, err
	}
	if s := PasswordStrength(r.Password); !s.Acceptable {
		slog.Debug("weak password accepted at registration", "score", s.Score)
	}

	hash, err := a.Passwords.Hash(r.Password)
	if err != nil {
		result = "error"
		return nil, err
	}
	verifyToken, err := randomHex(verificationTokenBytes)
	if err != nil {
		result = "error"
		return nil, err
	}

	now := a.nowTime()
	u := &domain.User{
		Email:             email,
		PasswordHash:      hash,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrEmailTaken
			}
			return err
		}
		if err := addPasswordHistory(ctx, tx, a.cfg.Policy, u.ID, hash); err != nil {
			return err
		}
		return tx.Verifications().CreateEmailVerification(ctx, &domain.EmailVerification{
			TokenDigest: digest(verifyToken),
			UserID:      u.ID,
			ExpiresAt:   now.Add(a.cfg.EmailTokenTTL),
			CreatedAt:   now,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			result = "conflict"
		} else {
			result = "error"
		}
		return nil, err
	}

	a.sendVerification(ctx, u.Email, verifyToken)
	a.Events.Publish(ctx, events.UserRegistered{UserID: u.ID.String(), Email: u.Email, At: now})

	tokens, err := a.issuePair(ctx, u.ID, device)
	if err != nil {
		result = "error"
		return nil, err
	}

	slog.Info("user registered",
		"user_id", u.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return &dto.RegisterResponse{
		UserID:                    u.ID.String(),
		RequiresEmailVerification: true,
		Tokens:                    tokens,
	}, nil
}

// VerifyEmail marks the owner verified and drops its verification tokens in
// one transaction.
func (a *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}
	now := a.nowTime()
	return a.Store.WithTx(ctx, func(tx *store.Store) error {
		v, err := tx.Verifications().GetEmailVerification(ctx, digest(token))
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		if !now.Before(v.ExpiresAt) {
			return domain.ErrInvalidToken
		}
		if err := tx.Users().SetVerified(ctx, v.UserID, now); err != nil {
			return err
		}
		return tx.Verifications().DeleteEmailVerifications(ctx, v.UserID)
	})
}

// ResendVerification replaces any outstanding token. Verified users are a no-op.
func (a *AuthServiceImpl) ResendVerification(ctx context.Context, userID domain.UserID) error {
	u, err := a.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.VerifiedAt != nil {
		return nil
	}
	token, err := randomHex(verificationTokenBytes)
	if err != nil {
		return err
	}
	now := a.nowTime()
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Verifications().DeleteEmailVerifications(ctx, userID); err != nil {
			return err
		}
		return tx.Verifications().CreateEmailVerification(ctx, &domain.EmailVerification{
			TokenDigest: digest(token),
			UserID:      userID,
			ExpiresAt:   now.Add(a.cfg.EmailTokenTTL),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}
	a.sendVerification(ctx, u.Email, token)
	return nil
}

// ====== Login, refresh, logout ======

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, device domain.DeviceInfo) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(result).Inc()
	}()
	device = normalizeDevice(device)

	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		result = "invalid"
		return nil, domain.ErrMissingCredentials
	}

	u, err := a.Store.Users().GetByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			result = reasonUnknownUser
			slog.Info("login for unknown email", "request_id", middleware.RequestIDFromContext(ctx))
			return nil, domain.ErrInvalidCredentials
		}
		result = "error"
		return nil, err
	}
	if u.IsDisabled() {
		result = reasonDisabled
		a.recordLogin(ctx, u.ID, device, reasonDisabled)
		return nil, domain.ErrUserDisabled
	}

	lock, err := a.Security.IsLocked(ctx, u.ID)
	if err != nil {
		result = "error"
		return nil, err
	}
	if lock.Locked {
		result = reasonLocked
		a.recordLogin(ctx, u.ID, device, reasonLocked)
		return nil, &domain.LockedError{LockedUntil: *lock.LockedUntil, MinutesRemaining: lock.MinutesRemaining}
	}

	rehash, ok := a.Passwords.Verify(r.Password, u.PasswordHash)
	if !ok {
		result = reasonBadPassword
		return nil, a.failLogin(ctx, u.ID, device, reasonBadPassword, domain.ErrInvalidCredentials)
	}

	if u.TwoFactorEnabled() {
		passed, err := a.checkSecondFactor(ctx, u.ID, r)
		if err != nil {
			result = "error"
			return nil, err
		}
		switch passed {
		case secondFactorMissing:
			result = reasonTwoFactorNeeded
			a.recordLogin(ctx, u.ID, device, reasonTwoFactorNeeded)
			return nil, domain.ErrTwoFactorRequired
		case secondFactorRejected:
			result = reasonBadTwoFactor
			return nil, a.failLogin(ctx, u.ID, device, reasonBadTwoFactor, domain.ErrInvalidTwoFactorCode)
		}
	}

	if err := a.Security.RecordSuccess(ctx, u.ID); err != nil {
		result = "error"
		return nil, err
	}
	if rehash {
		a.rehash(ctx, u.ID, r.Password)
	}
	a.recordLogin(ctx, u.ID, device, "")

	tokens, err := a.issuePair(ctx, u.ID, device)
	if err != nil {
		result = "error"
		return nil, err
	}
	slog.Info("login succeeded",
		"user_id", u.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return tokens, nil
}

type secondFactorOutcome int

const (
	secondFactorPassed secondFactorOutcome = iota
	secondFactorMissing
	secondFactorRejected
)

// checkSecondFactor accepts a TOTP code, or a backup code when no TOTP code is given.
func (a *AuthServiceImpl) checkSecondFactor(ctx context.Context, userID domain.UserID, r dto.LoginRequest) (secondFactorOutcome, error) {
	otp := strings.TrimSpace(r.OTP)
	backup := strings.TrimSpace(r.BackupCode)
	var (
		ok  bool
		err error
	)
	switch {
	case otp != "":
		ok, err = a.MFA.Verify(ctx, userID, otp)
	case backup != "":
		ok, err = a.MFA.ConsumeBackupCode(ctx, userID, backup)
	default:
		return secondFactorMissing, nil
	}
	if err != nil {
		return secondFactorRejected, err
	}
	if !ok {
		return secondFactorRejected, nil
	}
	return secondFactorPassed, nil
}

// failLogin records the failed attempt and reports a lock if this attempt caused one.
func (a *AuthServiceImpl) failLogin(ctx context.Context, userID domain.UserID, device domain.DeviceInfo, reason string, cause error) error {
	a.recordLogin(ctx, userID, device, reason)
	state, err := a.Security.RecordFailedAttempt(ctx, userID)
	if err != nil {
		return err
	}
	if state.Locked {
		return &domain.LockedError{
			LockedUntil:      *state.LockedUntil,
			MinutesRemaining: int(a.cfg.Policy.LockoutDuration.Minutes()),
		}
	}
	return cause
}

func (a *AuthServiceImpl) rehash(ctx context.Context, userID domain.UserID, password string) {
	hash, err := a.Passwords.Hash(password)
	if err == nil {
		err = a.Store.Users().UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		slog.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	slog.Info("password rehashed with current parameters", "user_id", userID)
}

func (a *AuthServiceImpl) recordLogin(ctx context.Context, userID domain.UserID, device domain.DeviceInfo, failure string) {
	h := &domain.LoginHistory{
		UserID:        userID,
		IP:            device.IP,
		UserAgent:     device.UserAgent,
		Success:       failure == "",
		FailureReason: failure,
		CreatedAt:     a.nowTime(),
	}
	if err := a.Store.LoginHistory().Append(ctx, h); err != nil {
		slog.Warn("login history append failed", "user_id", userID, "error", err)
	}
}

func (a *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string, device domain.DeviceInfo) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, domain.ErrInvalidRefreshToken
	}
	return a.Tokens.Rotate(ctx, refreshToken, device)
}

// Logout blacklists the access token and revokes the session it was minted
// for, plus refreshToken when it belongs to the same user.
func (a *AuthServiceImpl) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := a.verifyAccess(accessToken)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.ErrInvalidAccessToken
	}

	if err := a.Blacklist.Add(ctx, accessToken, userID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	if sid, err := uuid.Parse(claims.SessionID); err == nil {
		if err := a.Tokens.Revoke(ctx, sid); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
	}
	if refreshToken != "" {
		tok, err := a.Store.RefreshTokens().GetByToken(ctx, refreshToken)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
		case err != nil:
			return err
		case tok.UserID == userID:
			if err := a.Tokens.Revoke(ctx, tok.ID); err != nil {
				return err
			}
		}
	}

	a.Events.Publish(ctx, events.SessionRevoked{SessionID: claims.SessionID, UserID: userID.String(), Reason: "logout", Count: 1, At: a.nowTime()})
	slog.Info("logout", "user_id", userID, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

// Authenticate validates a bearer token and rejects blacklisted ones.
func (a *AuthServiceImpl) Authenticate(ctx context.Context, accessToken string) (*jwtsigner.Claims, error) {
	claims, err := a.verifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	revoked, err := a.Blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domain.ErrAccessTokenRevoked
	}
	return claims, nil
}

func (a *AuthServiceImpl) verifyAccess(accessToken string) (*jwtsigner.Claims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, domain.ErrInvalidAccessToken
	}
	claims, err := a.Signer.Verify(accessToken)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken
	}
	return claims, nil
}

func (a *AuthServiceImpl) issuePair(ctx context.Context, userID domain.UserID, device domain.DeviceInfo) (*dto.TokenResponse, error) {
	refresh, err := a.Tokens.Issue(ctx, userID, device)
	if err != nil {
		return nil, err
	}
	access, exp, err := a.Tokens.IssueAccess(userID, refresh.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:      access,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		ExpiresIn:        int64(exp.Sub(a.nowTime()).Round(time.Second).Seconds()),
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// ====== Sessions ======

func (a *AuthServiceImpl) ListSessions(ctx context.Context, userID domain.UserID) ([]domain.Session, error) {
	return a.Tokens.ListActiveSessions(ctx, userID)
}

// RevokeSession revokes one of the caller's own sessions. Sessions of other
// users are reported as not found.
func (a *AuthServiceImpl) RevokeSession(ctx context.Context, userID domain.UserID, sessionID domain.RefreshTokenID) error {
	tok, err := a.Store.RefreshTokens().GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrSessionNotFound
		}
		return err
	}
	if tok.UserID != userID {
		return domain.ErrSessionNotFound
	}
	if err := a.Tokens.Revoke(ctx, sessionID); err != nil {
		return err
	}
	a.Events.Publish(ctx, events.SessionRevoked{SessionID: sessionID.String(), UserID: userID.String(), Reason: "user", Count: 1, At: a.nowTime()})
	return nil
}

func (a *AuthServiceImpl) RevokeOtherSessions(ctx context.Context, userID domain.UserID, current domain.RefreshTokenID) (int64, error) {
	return a.Tokens.RevokeAll(ctx, userID, &current)
}

func (a *AuthServiceImpl) LoginHistory(ctx context.Context, userID domain.UserID, limit int) ([]domain.LoginHistory, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return a.Store.LoginHistory().ListRecent(ctx, userID, limit)
}

// ====== Passwords ======

// ForgotPassword never reveals whether the address is registered.
func (a *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	u, err := a.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			slog.Info("password reset for unknown email", "request_id", middleware.RequestIDFromContext(ctx))
			return nil
		}
		return err
	}
	if u.IsDisabled() {
		return nil
	}

	token, err := randomHex(verificationTokenBytes)
	if err != nil {
		return err
	}
	now := a.nowTime()
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Verifications().DeletePasswordResets(ctx, u.ID); err != nil {
			return err
		}
		return tx.Verifications().CreatePasswordReset(ctx, &domain.PasswordReset{
			TokenDigest: digest(token),
			UserID:      u.ID,
			ExpiresAt:   now.Add(a.cfg.ResetTokenTTL),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}
	if err := a.Email.SendPasswordReset(ctx, u.Email, token); err != nil {
		slog.Warn("password reset mail failed", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password from a mailed token. The hash update,
// history entry, token deletion and session revocation commit together.
func (a *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}
	if err := a.checkNewPassword(newPassword); err != nil {
		return err
	}
	now := a.nowTime()
	key := digest(token)

	reset, err := a.Store.Verifications().GetPasswordReset(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	if !now.Before(reset.ExpiresAt) {
		return domain.ErrInvalidToken
	}
	if err := a.Security.CheckPasswordReuse(ctx, reset.UserID, newPassword); err != nil {
		return err
	}
	hash, err := a.Passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		// The token may have been spent since the read above.
		if _, err := tx.Verifications().GetPasswordReset(ctx, key); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		if err := tx.Users().SetPassword(ctx, reset.UserID, hash, now); err != nil {
			return err
		}
		if err := addPasswordHistory(ctx, tx, a.cfg.Policy, reset.UserID, hash); err != nil {
			return err
		}
		if err := tx.Verifications().DeletePasswordResets(ctx, reset.UserID); err != nil {
			return err
		}
		if err := tx.Users().ResetLockout(ctx, reset.UserID); err != nil {
			return err
		}
		_, err := tx.RefreshTokens().RevokeAllForUser(ctx, reset.UserID, nil, now)
		return err
	})
	if err != nil {
		return err
	}
	a.Events.Publish(ctx, events.PasswordChanged{UserID: reset.UserID.String(), Reset: true, At: now})
	return nil
}

// ChangePassword requires the current password and revokes every session
// except keepSessionID.
func (a *AuthServiceImpl) ChangePassword(ctx context.Context, userID domain.UserID, current, next string, keepSessionID *domain.RefreshTokenID) error {
	u, err := a.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := a.Passwords.Verify(current, u.PasswordHash); !ok {
		return domain.ErrInvalidCredentials
	}
	if err := a.checkNewPassword(next); err != nil {
		return err
	}
	if err := a.Security.CheckPasswordReuse(ctx, userID, next); err != nil {
		return err
	}
	hash, err := a.Passwords.Hash(next)
	if err != nil {
		return err
	}
	now := a.nowTime()
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().SetPassword(ctx, userID, hash, now); err != nil {
			return err
		}
		if err := addPasswordHistory(ctx, tx, a.cfg.Policy, userID, hash); err != nil {
			return err
		}
		_, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID, keepSessionID, now)
		return err
	})
	if err != nil {
		return err
	}
	a.Events.Publish(ctx, events.PasswordChanged{UserID: userID.String(), At: now})
	return nil
}

func (a *AuthServiceImpl) checkNewPassword(pw string) error {
	if pw == "" {
		return domain.ErrMissingCredentials
	}
	if len([]rune(pw)) < a.cfg.Policy.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	return nil
}

// ====== Account ======

func (a *AuthServiceImpl) Me(ctx context.Context, userID domain.UserID) (*dto.UserResponse, error) {
	u, err := a.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.profile(u), nil
}

func (a *AuthServiceImpl) profile(u *domain.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                u.ID.String(),
		Email:             u.Email,
		EmailVerified:     u.VerifiedAt != nil,
		TwoFactorEnabled:  u.TwoFactorEnabled(),
		PasswordChangedAt: u.PasswordChangedAt,
		PasswordExpired:   a.Security.IsPasswordExpired(u),
		CreatedAt:         u.CreatedAt,
		VerifiedAt:        u.VerifiedAt,
	}
}

// UpdateEmail moves the account to a new address. The address must be
// verified again, so a fresh verification token is mailed to it.
func (a *AuthServiceImpl) UpdateEmail(ctx context.Context, userID domain.UserID, email string) (*dto.UserResponse, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := a.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Email == email {
		return a.profile(u), nil
	}
	token, err := randomHex(verificationTokenBytes)
	if err != nil {
		return nil, err
	}
	now := a.nowTime()
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().UpdateEmail(ctx, userID, email); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrEmailTaken
			}
			return err
		}
		if err := tx.Verifications().DeleteEmailVerifications(ctx, userID); err != nil {
			return err
		}
		return tx.Verifications().CreateEmailVerification(ctx, &domain.EmailVerification{
			TokenDigest: digest(token),
			UserID:      userID,
			ExpiresAt:   now.Add(a.cfg.EmailTokenTTL),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	a.sendVerification(ctx, email, token)
	slog.Info("email changed", "user_id", userID, "request_id", middleware.RequestIDFromContext(ctx))

	u.Email = email
	u.VerifiedAt = nil
	return a.profile(u), nil
}

// FailedLoginAttempts counts failed logins within the trailing window.
func (a *AuthServiceImpl) FailedLoginAttempts(ctx context.Context, userID domain.UserID, window time.Duration) (int64, error) {
	switch {
	case window <= 0:
		window = defaultFailureWindow
	case window > maxFailureWindow:
		window = maxFailureWindow
	}
	return a.Store.LoginHistory().CountFailedSince(ctx, userID, a.nowTime().Add(-window))
}

// ExportData gathers the profile, active sessions and recent login history.
func (a *AuthServiceImpl) ExportData(ctx context.Context, userID domain.UserID) (*dto.AccountExport, error) {
	u, err := a.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := a.Tokens.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := a.Store.LoginHistory().ListRecent(ctx, userID, exportHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &dto.AccountExport{
		ExportedAt:   a.nowTime(),
		Profile:      *a.profile(u),
		Sessions:     sessions,
		LoginHistory: history,
	}, nil
}

// DisableAccount soft-deletes the account, revokes every session and
// blacklists the access token used for the request.
func (a *AuthServiceImpl) DisableAccount(ctx context.Context, userID domain.UserID, password, accessToken string) error {
	u, err := a.loadActiveUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := a.Passwords.Verify(password, u.PasswordHash); !ok {
		return domain.ErrInvalidCredentials
	}
	now := a.nowTime()
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().SetDisabled(ctx, userID, now); err != nil {
			return err
		}
		_, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID, nil, now)
		return err
	})
	if err != nil {
		return err
	}
	if accessToken != "" {
		if claims, err := a.verifyAccess(accessToken); err == nil && claims.Subject == userID.String() {
			if err := a.Blacklist.Add(ctx, accessToken, userID, claims.ExpiresAt.Time); err != nil {
				return err
			}
		}
	}
	a.Events.Publish(ctx, events.AccountDisabled{UserID: userID.String(), At: now})
	return nil
}

// ====== Helpers ======

func (a *AuthServiceImpl) loadUser(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	u, err := a.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// loadActiveUser is loadUser for callers acting on their own account, which
// is gone once disabled.
func (a *AuthServiceImpl) loadActiveUser(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	u, err := a.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsDisabled() {
		return nil, domain.ErrUserDisabled
	}
	return u, nil
}

func (a *AuthServiceImpl) sendVerification(ctx context.Context, to, token string) {
	if err := a.Email.SendVerification(ctx, to, token); err != nil {
		slog.Warn("verification mail failed", "to", to, "error", err)
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrMissingCredentials
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
