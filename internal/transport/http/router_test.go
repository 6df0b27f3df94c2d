package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"authcore/internal/config"
	"authcore/internal/dto"
	"authcore/internal/jwtsigner"
	impl "authcore/internal/service/impl"
	"authcore/internal/store/storetest"

	"github.com/MicahParks/keyfunc"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const goodPassword = "Str0ng!Passw0rd"

type nopMailer struct{}

func (nopMailer) SendVerification(context.Context, string, string) error  { return nil }
func (nopMailer) SendPasswordReset(context.Context, string, string) error { return nil }

type testServer struct {
	*httptest.Server
	signer *jwtsigner.Signer
}

func newTestServer(t *testing.T, rc RouterConfig) *testServer {
	t.Helper()
	st := storetest.Open(t)
	signer, err := jwtsigner.NewEd25519FromBase64("", "kid-ed", "authcore-test", "clients")
	require.NoError(t, err)

	policy := config.DefaultPolicy()
	passwords := impl.NewPasswordServiceWithParams(impl.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	tokens := impl.NewTokenService(impl.DefaultTokenConfig(), st, signer, nil)
	blacklist, err := impl.NewBlacklistService(st, nil)
	require.NoError(t, err)
	security := impl.NewSecurityService(policy, st, passwords, nil)
	mfaCfg := impl.DefaultMFAConfig()
	mfaCfg.BcryptCost = bcrypt.MinCost
	mfa := impl.NewMFAService(mfaCfg, st, passwords, nil)

	authCfg := impl.DefaultAuthConfig()
	authCfg.Policy = policy
	auth := impl.NewAuthService(authCfg, impl.AuthDeps{
		Store:     st,
		Passwords: passwords,
		Tokens:    tokens,
		Signer:    signer,
		Blacklist: blacklist,
		Security:  security,
		MFA:       mfa,
		Email:     nopMailer{},
	})

	h := &Handler{Auth: auth, MFA: mfa, Security: security, Keys: signer}
	srv := httptest.NewServer(NewRouter(h, rc))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, signer: signer}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0")

	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	out := response{status: res.StatusCode, header: res.Header}
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func (s *testServer) register(t *testing.T, email string) dto.TokenResponse {
	t.Helper()
	res := s.do(t, http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: email, Password: goodPassword})
	require.Equal(t, http.StatusCreated, res.status)
	raw, err := json.Marshal(res.body["tokens"])
	require.NoError(t, err)
	var tokens dto.TokenResponse
	require.NoError(t, json.Unmarshal(raw, &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	res := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.status)
}

func TestRegisterMeLogoutRevokesAccessToken(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "alice@example.com")

	me := s.do(t, http.MethodGet, "/v1/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, me.status)
	require.Equal(t, "alice@example.com", me.body["email"])
	require.NotEmpty(t, me.header.Get("X-Request-Id"))

	out := s.do(t, http.MethodPost, "/v1/auth/logout", tokens.AccessToken, dto.LogoutRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusNoContent, out.status)

	again := s.do(t, http.MethodGet, "/v1/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, again.status)
	require.Equal(t, "access_token_revoked", again.body["error"])

	refresh := s.do(t, http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, refresh.status)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "bob@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		body   any
		status int
		code   string
	}{
		{"missing bearer", http.MethodGet, "/v1/me", "", nil, http.StatusUnauthorized, "invalid_access_token"},
		{"garbage bearer", http.MethodGet, "/v1/me", "not-a-jwt", nil, http.StatusUnauthorized, "invalid_access_token"},
		{"duplicate email", http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "bob@example.com", Password: goodPassword}, http.StatusConflict, "email_taken"},
		{"invalid email", http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "nope", Password: goodPassword}, http.StatusBadRequest, "invalid_email"},
		{"wrong password", http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "bob@example.com", Password: "wrong-password"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown session", http.MethodDelete, "/v1/sessions/9b2f1a1e-2d0c-4c55-9d59-0c7a7f0b8e11", tokens.AccessToken, nil, http.StatusNotFound, "session_not_found"},
		{"malformed session id", http.MethodDelete, "/v1/sessions/xyz", tokens.AccessToken, nil, http.StatusNotFound, "session_not_found"},
		{"confirm without enable", http.MethodPost, "/v1/2fa/confirm", tokens.AccessToken, dto.TwoFactorCodeRequest{Code: "123456"}, http.StatusBadRequest, "two_factor_not_pending"},
		{"unknown verification token", http.MethodPost, "/v1/auth/verify-email", "", dto.VerifyEmailRequest{Token: "deadbeef"}, http.StatusBadRequest, "invalid_token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := s.do(t, tc.method, tc.path, tc.bearer, tc.body)
			require.Equal(t, tc.status, res.status)
			require.Equal(t, tc.code, res.body["error"])
		})
	}
}

func TestInvalidJSONIsBadRequest(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	req, err := http.NewRequest(http.MethodPost, s.URL+"/v1/auth/login", bytes.NewBufferString("{"))
	require.NoError(t, err)
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRefreshReuseIsUnauthorized(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "carol@example.com")

	first := s.do(t, http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, first.status)

	replay := s.do(t, http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, replay.status)
	require.Equal(t, "refresh_token_reuse", replay.body["error"])

	// reuse revoked the whole family
	next, _ := first.body["refreshToken"].(string)
	res := s.do(t, http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: next})
	require.Equal(t, http.StatusUnauthorized, res.status)
}

func TestLockoutReturnsRetryAfter(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.register(t, "dave@example.com")

	bad := dto.LoginRequest{Email: "dave@example.com", Password: "wrong-password"}
	for i := 0; i < 4; i++ {
		res := s.do(t, http.MethodPost, "/v1/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, res.status)
	}
	res := s.do(t, http.MethodPost, "/v1/auth/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, res.status)
	require.Equal(t, "account_locked", res.body["error"])
	require.Equal(t, "900", res.header.Get("Retry-After"))

	// the right password does not get through while locked
	good := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "dave@example.com", Password: goodPassword})
	require.Equal(t, http.StatusTooManyRequests, good.status)
}

func TestCredentialRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, RouterConfig{AuthRateLimitPerMin: 2})
	req := dto.LoginRequest{Email: "nobody@example.com", Password: "whatever-pw"}

	for i := 0; i < 2; i++ {
		res := s.do(t, http.MethodPost, "/v1/auth/login", "", req)
		require.Equal(t, http.StatusUnauthorized, res.status)
	}
	res := s.do(t, http.MethodPost, "/v1/auth/login", "", req)
	require.Equal(t, http.StatusTooManyRequests, res.status)

	// the tighter limiter does not apply to strength checks
	strength := s.do(t, http.MethodPost, "/v1/auth/password-strength", "", dto.PasswordStrengthRequest{Password: "abc"})
	require.Equal(t, http.StatusOK, strength.status)
}

func TestSessionsListAndRevokeOthers(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	first := s.register(t, "erin@example.com")
	login := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "erin@example.com", Password: goodPassword})
	require.Equal(t, http.StatusOK, login.status)

	list := s.do(t, http.MethodGet, "/v1/sessions", first.AccessToken, nil)
	require.Equal(t, http.StatusOK, list.status)
	require.Len(t, list.body["sessions"], 2)

	revoked := s.do(t, http.MethodPost, "/v1/sessions/revoke-others", first.AccessToken, nil)
	require.Equal(t, http.StatusOK, revoked.status)
	require.EqualValues(t, 1, revoked.body["revoked"])

	list = s.do(t, http.MethodGet, "/v1/sessions", first.AccessToken, nil)
	require.Len(t, list.body["sessions"], 1)

	history := s.do(t, http.MethodGet, "/v1/login-history?limit=5", first.AccessToken, nil)
	require.Equal(t, http.StatusOK, history.status)
	require.Len(t, history.body["entries"], 1)

	badLimit := s.do(t, http.MethodGet, "/v1/login-history?limit=abc", first.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, badLimit.status)
}

func TestJWKSVerifiesIssuedAccessTokens(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "frank@example.com")

	jwks, err := keyfunc.Get(s.URL+"/.well-known/jwks.json", keyfunc.Options{})
	require.NoError(t, err)

	token, err := jwtv4.Parse(tokens.AccessToken, jwks.Keyfunc)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwtv4.MapClaims)
	require.True(t, ok)
	require.Equal(t, "authcore-test", claims["iss"])
	require.NotEmpty(t, claims["sub"])
	require.NotEmpty(t, claims["sid"])
}

func TestJWKSIsEmptyForSharedSecret(t *testing.T) {
	signer, err := jwtsigner.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "kid-hs", "iss", "aud")
	require.NoError(t, err)
	h := &Handler{Keys: signer}

	rec := httptest.NewRecorder()
	h.JWKS(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"keys":[]}`, rec.Body.String())
}

func TestAccountExportIsAttachment(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "grace@example.com")

	res := s.do(t, http.MethodGet, "/v1/me/export", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Contains(t, res.header.Get("Content-Disposition"), "attachment")

	profile, ok := res.body["profile"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "grace@example.com", profile["email"])
	require.Len(t, res.body["sessions"], 1)

	raw, err := json.Marshal(res.body)
	require.NoError(t, err)
	require.NotContains(t, string(raw), tokens.RefreshToken)
	require.NotContains(t, string(raw), "passwordHash")
	require.NotContains(t, string(raw), "$argon2id$")
}

func TestFailedAttemptsCountsRecentFailures(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "heidi@example.com")

	bad := dto.LoginRequest{Email: "heidi@example.com", Password: "wrong-password"}
	for i := 0; i < 2; i++ {
		res := s.do(t, http.MethodPost, "/v1/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, res.status)
	}

	res := s.do(t, http.MethodGet, "/v1/me/failed-attempts", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.EqualValues(t, 2, res.body["count"])
	require.EqualValues(t, 15, res.body["timeWindowMinutes"])

	res = s.do(t, http.MethodGet, "/v1/me/failed-attempts?timeWindow=60", tokens.AccessToken, nil)
	require.EqualValues(t, 60, res.body["timeWindowMinutes"])

	res = s.do(t, http.MethodGet, "/v1/me/failed-attempts?timeWindow=abc", tokens.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, res.status)
}

func TestUpdateEmail(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "ivan@example.com")
	s.register(t, "judy@example.com")

	taken := s.do(t, http.MethodPatch, "/v1/me", tokens.AccessToken, dto.UpdateProfileRequest{Email: "judy@example.com"})
	require.Equal(t, http.StatusConflict, taken.status)
	require.Equal(t, "email_taken", taken.body["error"])

	invalid := s.do(t, http.MethodPatch, "/v1/me", tokens.AccessToken, dto.UpdateProfileRequest{Email: "not-an-email"})
	require.Equal(t, http.StatusBadRequest, invalid.status)

	res := s.do(t, http.MethodPatch, "/v1/me", tokens.AccessToken, dto.UpdateProfileRequest{Email: "Ivan.New@example.com"})
	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, "ivan.new@example.com", res.body["email"])
	require.Equal(t, false, res.body["emailVerified"])

	login := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "ivan.new@example.com", Password: goodPassword})
	require.Equal(t, http.StatusOK, login.status)
}

func TestDeleteMeRevokesCallerAccessToken(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	tokens := s.register(t, "kim@example.com")

	res := s.do(t, http.MethodDelete, "/v1/me", tokens.AccessToken, dto.DisableAccountRequest{Password: goodPassword})
	require.Equal(t, http.StatusNoContent, res.status)

	me := s.do(t, http.MethodGet, "/v1/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, me.status)
	require.Equal(t, "access_token_revoked", me.body["error"])
}
