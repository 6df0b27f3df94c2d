package impl

import (
	"context"
	"strings"
	"testing"
	"time"

	"authcore/internal/domain"
	"authcore/internal/store"
	"authcore/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const mfaTestPassword = "correct horse battery"

func newTestMFA(t *testing.T) (*MFAServiceImpl, *store.Store, *domain.User, *clock) {
	t.Helper()
	st := storetest.Open(t)
	passwords := NewPasswordServiceWithParams(fastArgon2)
	cfg := DefaultMFAConfig()
	cfg.BcryptCost = bcrypt.MinCost
	svc := NewMFAService(cfg, st, passwords, nil)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = c.now

	u := seedUser(t, st, "mfa@example.com")
	hash, err := passwords.Hash(mfaTestPassword)
	require.NoError(t, err)
	require.NoError(t, st.Users().UpdatePasswordHash(context.Background(), u.ID, hash))
	return svc, st, u, c
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)
	return code
}

func TestTwoFactorLifecycle(t *testing.T) {
	svc, st, u, c := newTestMFA(t)
	ctx := context.Background()

	enrollment, err := svc.Enable(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.True(t, strings.HasPrefix(enrollment.OTPAuthURL, "otpauth://totp/"))
	require.Len(t, enrollment.BackupCodes, 10)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.TwoFactorPending())

	require.ErrorIs(t, svc.Confirm(ctx, u.ID, "000000"), domain.ErrInvalidTwoFactorCode)
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.TwoFactorPending(), "a wrong code keeps the secret for retry")

	require.NoError(t, svc.Confirm(ctx, u.ID, codeAt(t, enrollment.Secret, c.t)))
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.TwoFactorEnabled())

	_, err = svc.Enable(ctx, u.ID)
	require.ErrorIs(t, err, domain.ErrTwoFactorEnabled)

	require.ErrorIs(t, svc.Disable(ctx, u.ID, "wrong password", codeAt(t, enrollment.Secret, c.t)), domain.ErrInvalidCredentials)
	require.ErrorIs(t, svc.Disable(ctx, u.ID, mfaTestPassword, "123"), domain.ErrInvalidTwoFactorCode)

	require.NoError(t, svc.Disable(ctx, u.ID, mfaTestPassword, codeAt(t, enrollment.Secret, c.t)))
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.TwoFactorSecret)
	require.Nil(t, got.TwoFactorEnabledAt)

	left, err := st.BackupCodes().ListUnused(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestConfirmWithoutEnable(t *testing.T) {
	svc, _, u, _ := newTestMFA(t)
	require.ErrorIs(t, svc.Confirm(context.Background(), u.ID, "123456"), domain.ErrTwoFactorNotPending)
}

func TestVerifyToleratesTwoSteps(t *testing.T) {
	svc, _, u, c := newTestMFA(t)
	ctx := context.Background()

	enrollment, err := svc.Enable(ctx, u.ID)
	require.NoError(t, err)

	cases := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},
		{-60 * time.Second, true},
		{60 * time.Second, true},
		{-120 * time.Second, false},
		{150 * time.Second, false},
	}
	for _, tc := range cases {
		ok, err := svc.Verify(ctx, u.ID, codeAt(t, enrollment.Secret, c.t.Add(tc.offset)))
		require.NoError(t, err)
		require.Equal(t, tc.want, ok, "offset %s", tc.offset)
	}

	ok, err := svc.Verify(ctx, u.ID, "not-a-code")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWithoutSecret(t *testing.T) {
	svc, _, u, _ := newTestMFA(t)
	_, err := svc.Verify(context.Background(), u.ID, "123456")
	require.ErrorIs(t, err, domain.ErrTwoFactorNotEnabled)
}

func TestEachBackupCodeWorksOnce(t *testing.T) {
	svc, _, u, _ := newTestMFA(t)
	ctx := context.Background()

	enrollment, err := svc.Enable(ctx, u.ID)
	require.NoError(t, err)

	for _, code := range enrollment.BackupCodes {
		ok, err := svc.ConsumeBackupCode(ctx, u.ID, strings.ToLower(code))
		require.NoError(t, err)
		require.True(t, ok, code)

		ok, err = svc.ConsumeBackupCode(ctx, u.ID, code)
		require.NoError(t, err)
		require.False(t, ok, "second use of %s", code)
	}

	ok, err := svc.ConsumeBackupCode(ctx, u.ID, "AAAAA-AAAAA")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConsumeBackupCodeUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestMFA(t)

	ok, err := svc.ConsumeBackupCode(context.Background(), uuid.New(), "AAAAA-AAAAA")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.False(t, ok)
}

func TestBackupCodesAreNotStoredPlain(t *testing.T) {
	svc, st, u, _ := newTestMFA(t)
	ctx := context.Background()

	enrollment, err := svc.Enable(ctx, u.ID)
	require.NoError(t, err)
	rows, err := st.BackupCodes().ListUnused(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for _, r := range rows {
		for _, code := range enrollment.BackupCodes {
			require.NotContains(t, r.CodeHash, canonicalBackupCode(code))
		}
	}
}

func TestCanonicalBackupCode(t *testing.T) {
	require.Equal(t, "ABCDE23456", canonicalBackupCode(" abcde-23456 "))
	code, err := newBackupCode()
	require.NoError(t, err)
	require.Len(t, code, backupCodeLen+1)
	require.Equal(t, byte('-'), code[5])
}
