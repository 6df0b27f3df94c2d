package impl

import (
	"context"
	"testing"
	"time"

	"authcore/internal/domain"
	"authcore/internal/jwtsigner"
	"authcore/internal/store"
	"authcore/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *jwtsigner.Signer {
	t.Helper()
	s, err := jwtsigner.NewHS256(testSecret, "kid-test", "authcore-test", "clients")
	require.NoError(t, err)
	return s
}

func seedUser(t *testing.T, st *store.Store, email string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		Email:             email,
		PasswordHash:      "unused",
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func newTestTokenService(t *testing.T) (*TokenServiceImpl, *store.Store) {
	t.Helper()
	st := storetest.Open(t)
	return NewTokenService(DefaultTokenConfig(), st, newTestSigner(t), nil), st
}

// clock is a settable time source for services with a now hook.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
