package impl

import (
	"context"
	"testing"
	"time"

	"authcore/internal/config"
	"authcore/internal/domain"
	"authcore/internal/store"
	"authcore/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

func newTestSecurity(t *testing.T) (*SecurityServiceImpl, *store.Store, *clock) {
	t.Helper()
	st := storetest.Open(t)
	svc := NewSecurityService(config.DefaultPolicy(), st, NewPasswordServiceWithParams(fastArgon2), nil)
	c := &clock{t: time.Now().UTC()}
	svc.now = c.now
	return svc, st, c
}

func TestFiveFailuresLockFor15Minutes(t *testing.T) {
	svc, st, c := newTestSecurity(t)
	u := seedUser(t, st, "a@example.com")
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		state, err := svc.RecordFailedAttempt(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, state.Locked)
		require.Equal(t, i, state.Attempts)
	}
	state, err := svc.RecordFailedAttempt(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, state.Locked)
	require.Equal(t, 5, state.Attempts)
	require.WithinDuration(t, c.t.Add(15*time.Minute), *state.LockedUntil, time.Second)

	status, err := svc.IsLocked(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, status.Locked)
	require.Equal(t, 15, status.MinutesRemaining)

	c.advance(10*time.Minute + 30*time.Second)
	status, err = svc.IsLocked(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 5, status.MinutesRemaining, "remaining minutes round up")
}

func TestLockExpiresLazily(t *testing.T) {
	svc, st, c := newTestSecurity(t)
	u := seedUser(t, st, "a@example.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.RecordFailedAttempt(ctx, u.ID)
		require.NoError(t, err)
	}
	c.advance(16 * time.Minute)

	status, err := svc.IsLocked(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, status.Locked)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.LockedUntil)
	require.Zero(t, got.FailedAttempts, "the elapsed lock resets the counter")
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	svc, st, _ := newTestSecurity(t)
	u := seedUser(t, st, "a@example.com")
	ctx := context.Background()

	_, err := svc.RecordFailedAttempt(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RecordSuccess(ctx, u.ID))

	state, err := svc.RecordFailedAttempt(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, state.Attempts)
}

func TestPasswordReuseAgainstLastThree(t *testing.T) {
	svc, st, _ := newTestSecurity(t)
	u := seedUser(t, st, "a@example.com")
	ctx := context.Background()

	for _, pw := range []string{"first-Pass1", "second-Pass2", "third-Pass3", "fourth-Pass4"} {
		h, err := svc.passwords.Hash(pw)
		require.NoError(t, err)
		require.NoError(t, svc.AddPasswordHistory(ctx, u.ID, h))
	}

	for _, pw := range []string{"second-Pass2", "third-Pass3", "fourth-Pass4"} {
		require.ErrorIs(t, svc.CheckPasswordReuse(ctx, u.ID, pw), domain.ErrPasswordReused, pw)
	}
	require.NoError(t, svc.CheckPasswordReuse(ctx, u.ID, "first-Pass1"), "fell out of the window")
	require.NoError(t, svc.CheckPasswordReuse(ctx, u.ID, "brand-new-Pass5"))

	recent, err := st.PasswordHistory().Recent(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
}

func TestPasswordExpiry(t *testing.T) {
	svc, _, c := newTestSecurity(t)
	u := &domain.User{PasswordChangedAt: c.t}

	c.advance(90 * 24 * time.Hour)
	require.False(t, svc.IsPasswordExpired(u))
	c.advance(24 * time.Hour)
	require.True(t, svc.IsPasswordExpired(u))
	require.False(t, svc.IsPasswordExpired(&domain.User{}))
}

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		pw         string
		score      int
		level      string
		acceptable bool
	}{
		{"", 0, "very_weak", false},
		{"abc", 15, "very_weak", false},
		{"abcdefgh", 35, "very_weak", false},
		{"abcdefgh1", 50, "weak", false},
		{"Abcdefgh1", 65, "medium", true},
		{"Abcdefgh1!", 80, "strong", true},
		{"Abcdefgh1!Abcdefgh", 100, "strong", true},
	}
	for _, tc := range cases {
		t.Run(tc.pw, func(t *testing.T) {
			got := PasswordStrength(tc.pw)
			require.Equal(t, tc.score, got.Score)
			require.Equal(t, tc.level, got.Level)
			require.Equal(t, tc.acceptable, got.Acceptable)
			require.Equal(t, got, PasswordStrength(tc.pw), "deterministic")
		})
	}

	require.Empty(t, PasswordStrength("Abcdefgh1!Abcdefgh").Feedback)
	require.Contains(t, PasswordStrength("abc").Feedback, "Add uppercase letters")
}
