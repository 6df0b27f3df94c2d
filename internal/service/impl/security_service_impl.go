package impl

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"authcore/internal/config"
	"authcore/internal/domain"
	"authcore/internal/events"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

var _ service.SecurityService = (*SecurityServiceImpl)(nil)

// SecurityServiceImpl enforces lockout, password history and password age.
type SecurityServiceImpl struct {
	policy    config.Policy
	store     *store.Store
	passwords service.PasswordService
	events    events.Publisher
	now       func() time.Time
}

func NewSecurityService(policy config.Policy, st *store.Store, passwords service.PasswordService, pub events.Publisher) *SecurityServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &SecurityServiceImpl{policy: policy, store: st, passwords: passwords, events: pub}
}

func (s *SecurityServiceImpl) nowTime() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// RecordFailedAttempt increments the counter and locks the account once it
// reaches the policy threshold.
func (s *SecurityServiceImpl) RecordFailedAttempt(ctx context.Context, userID domain.UserID) (domain.LockState, error) {
	attempts, err := s.store.Users().IncrementFailedAttempts(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.LockState{}, domain.ErrUserNotFound
		}
		return domain.LockState{}, err
	}
	state := domain.LockState{Attempts: attempts}
	if attempts < s.policy.MaxFailedAttempts {
		return state, nil
	}

	until := s.nowTime().Add(s.policy.LockoutDuration)
	if err := s.store.Users().SetLockedUntil(ctx, userID, until); err != nil {
		return state, err
	}
	state.Locked = true
	state.LockedUntil = &until

	metrics.LockoutsTotal.Inc()
	slog.Warn("account locked", "user_id", userID, "attempts", attempts, "locked_until", until)
	s.events.Publish(ctx, events.AccountLocked{UserID: userID.String(), Attempts: attempts, LockedUntil: until})
	return state, nil
}

func (s *SecurityServiceImpl) RecordSuccess(ctx context.Context, userID domain.UserID) error {
	return s.store.Users().ResetLockout(ctx, userID)
}

// IsLocked reports the lock state. An elapsed lock is cleared as a side effect.
func (s *SecurityServiceImpl) IsLocked(ctx context.Context, userID domain.UserID) (domain.LockStatus, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.LockStatus{}, domain.ErrUserNotFound
		}
		return domain.LockStatus{}, err
	}
	return s.lockStatus(ctx, u)
}

func (s *SecurityServiceImpl) lockStatus(ctx context.Context, u *domain.User) (domain.LockStatus, error) {
	if u.LockedUntil == nil {
		return domain.LockStatus{}, nil
	}
	now := s.nowTime()
	if now.Before(*u.LockedUntil) {
		until := *u.LockedUntil
		return domain.LockStatus{
			Locked:           true,
			LockedUntil:      &until,
			MinutesRemaining: int(math.Ceil(until.Sub(now).Minutes())),
		}, nil
	}
	if err := s.store.Users().ResetExpiredLockout(ctx, u.ID, now); err != nil {
		return domain.LockStatus{}, err
	}
	u.LockedUntil = nil
	u.FailedAttempts = 0
	return domain.LockStatus{}, nil
}

// CheckPasswordReuse fails with ErrPasswordReused when candidate matches one
// of the most recent stored hashes.
func (s *SecurityServiceImpl) CheckPasswordReuse(ctx context.Context, userID domain.UserID, candidate string) error {
	if s.policy.PasswordHistoryDepth <= 0 {
		return nil
	}
	recent, err := s.store.PasswordHistory().Recent(ctx, userID, s.policy.PasswordHistoryDepth)
	if err != nil {
		return err
	}
	for _, h := range recent {
		if _, ok := s.passwords.Verify(candidate, h.PasswordHash); ok {
			return domain.ErrPasswordReused
		}
	}
	return nil
}

func (s *SecurityServiceImpl) AddPasswordHistory(ctx context.Context, userID domain.UserID, hash string) error {
	return addPasswordHistory(ctx, s.store, s.policy, userID, hash)
}

// addPasswordHistory is shared with transactional callers that hold their own store.
func addPasswordHistory(ctx context.Context, st *store.Store, policy config.Policy, userID domain.UserID, hash string) error {
	if policy.PasswordHistoryDepth <= 0 {
		return nil
	}
	return st.PasswordHistory().Add(ctx, userID, hash, policy.PasswordHistoryDepth)
}

// IsPasswordExpired is advisory; callers decide whether to enforce it.
func (s *SecurityServiceImpl) IsPasswordExpired(u *domain.User) bool {
	if u == nil || u.PasswordChangedAt.IsZero() || s.policy.PasswordMaxAge <= 0 {
		return false
	}
	return s.nowTime().Sub(u.PasswordChangedAt) > s.policy.PasswordMaxAge
}

func (s *SecurityServiceImpl) Strength(password string) domain.StrengthResult {
	return PasswordStrength(password)
}
