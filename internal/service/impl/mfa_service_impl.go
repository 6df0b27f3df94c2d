package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"authcore/internal/domain"
	"authcore/internal/events"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

var _ service.MFAService = (*MFAServiceImpl)(nil)

type MFAConfig struct {
	Issuer          string // shown in authenticator apps
	Skew            uint   // accepted periods either side of now
	BackupCodeCount int
	BcryptCost      int
}

func DefaultMFAConfig() MFAConfig {
	return MFAConfig{
		Issuer:          "authcore",
		Skew:            2,
		BackupCodeCount: 10,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

const totpPeriod = 30

// MFAServiceImpl moves a user between disabled, pending and enabled TOTP states.
type MFAServiceImpl struct {
	cfg       MFAConfig
	store     *store.Store
	passwords service.PasswordService
	events    events.Publisher
	now       func() time.Time
}

func NewMFAService(cfg MFAConfig, st *store.Store, passwords service.PasswordService, pub events.Publisher) *MFAServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &MFAServiceImpl{cfg: cfg, store: st, passwords: passwords, events: pub}
}

func (m *MFAServiceImpl) nowTime() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now().UTC()
}

func (m *MFAServiceImpl) loadUser(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	u, err := m.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Enable generates a secret and a fresh set of backup codes and leaves the
// user pending. Calling it again while pending replaces both.
func (m *MFAServiceImpl) Enable(ctx context.Context, userID domain.UserID) (*domain.TwoFactorEnrollment, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TwoFactorEnabled() {
		return nil, domain.ErrTwoFactorEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.cfg.Issuer,
		AccountName: u.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	now := m.nowTime()
	plain := make([]string, 0, m.cfg.BackupCodeCount)
	rows := make([]domain.BackupCode, 0, m.cfg.BackupCodeCount)
	for i := 0; i < m.cfg.BackupCodeCount; i++ {
		code, err := newBackupCode()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(canonicalBackupCode(code)), m.cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		plain = append(plain, code)
		rows = append(rows, domain.BackupCode{UserID: userID, CodeHash: string(hash), CreatedAt: now})
	}

	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().SetTwoFactorSecret(ctx, userID, key.Secret()); err != nil {
			return err
		}
		return tx.BackupCodes().Replace(ctx, userID, rows)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("two-factor enrollment started", "user_id", userID)
	return &domain.TwoFactorEnrollment{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		BackupCodes: plain,
	}, nil
}

// Confirm enables a pending secret. A wrong code leaves the user pending.
func (m *MFAServiceImpl) Confirm(ctx context.Context, userID domain.UserID, code string) error {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.TwoFactorEnabled() {
		return domain.ErrTwoFactorEnabled
	}
	if !u.TwoFactorPending() {
		return domain.ErrTwoFactorNotPending
	}
	if !m.validate(*u.TwoFactorSecret, code) {
		metrics.TwoFactorVerificationsTotal.WithLabelValues("confirm", "failure").Inc()
		return domain.ErrInvalidTwoFactorCode
	}
	now := m.nowTime()
	ok, err := m.store.Users().EnableTwoFactor(ctx, userID, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTwoFactorNotPending
	}
	metrics.TwoFactorVerificationsTotal.WithLabelValues("confirm", "success").Inc()
	m.events.Publish(ctx, events.TwoFactorChanged{UserID: userID.String(), Enabled: true, At: now})
	return nil
}

// Verify checks code against the current secret without changing state.
func (m *MFAServiceImpl) Verify(ctx context.Context, userID domain.UserID, code string) (bool, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.TwoFactorSecret == nil {
		return false, domain.ErrTwoFactorNotEnabled
	}
	ok := m.validate(*u.TwoFactorSecret, code)
	metrics.TwoFactorVerificationsTotal.WithLabelValues("totp", boolResult(ok)).Inc()
	return ok, nil
}

// Disable needs both the account password and a current code.
func (m *MFAServiceImpl) Disable(ctx context.Context, userID domain.UserID, password, code string) error {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.TwoFactorEnabled() {
		return domain.ErrTwoFactorNotEnabled
	}
	if _, ok := m.passwords.Verify(password, u.PasswordHash); !ok {
		return domain.ErrInvalidCredentials
	}
	if !m.validate(*u.TwoFactorSecret, code) {
		metrics.TwoFactorVerificationsTotal.WithLabelValues("disable", "failure").Inc()
		return domain.ErrInvalidTwoFactorCode
	}

	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().ClearTwoFactor(ctx, userID); err != nil {
			return err
		}
		_, err := tx.BackupCodes().DeleteAll(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	m.events.Publish(ctx, events.TwoFactorChanged{UserID: userID.String(), Enabled: false, At: m.nowTime()})
	return nil
}

// ConsumeBackupCode marks the first matching unused code as used. A code can
// only ever be consumed once.
func (m *MFAServiceImpl) ConsumeBackupCode(ctx context.Context, userID domain.UserID, code string) (bool, error) {
	if _, err := m.loadUser(ctx, userID); err != nil {
		return false, err
	}
	canonical := canonicalBackupCode(code)
	if len(canonical) != backupCodeLen {
		metrics.TwoFactorVerificationsTotal.WithLabelValues("backup_code", "failure").Inc()
		return false, nil
	}
	codes, err := m.store.BackupCodes().ListUnused(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(canonical)) != nil {
			continue
		}
		won, err := m.store.BackupCodes().MarkUsed(ctx, c.ID, m.nowTime())
		if err != nil {
			return false, err
		}
		metrics.TwoFactorVerificationsTotal.WithLabelValues("backup_code", boolResult(won)).Inc()
		if won {
			slog.Info("backup code consumed", "user_id", userID, "remaining", len(codes)-1)
		}
		return won, nil
	}
	metrics.TwoFactorVerificationsTotal.WithLabelValues("backup_code", "failure").Inc()
	return false, nil
}

func (m *MFAServiceImpl) validate(secret, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, m.nowTime(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      m.cfg.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func boolResult(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
