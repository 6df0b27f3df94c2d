package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"authcore/internal/domain"
	"authcore/internal/jwtsigner"
	"authcore/internal/observability/middleware"
	"authcore/internal/service"

	"github.com/google/uuid"
)

// principal is the authenticated caller of a request.
type principal struct {
	UserID      domain.UserID
	SessionID   *domain.RefreshTokenID
	AccessToken string
	Claims      *jwtsigner.Claims
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p *principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (*principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*principal)
	return p, ok && p != nil
}

func bearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if len(raw) < len("Bearer ") || !strings.EqualFold(raw[:len("Bearer ")], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(raw[len("Bearer "):])
	return tok, tok != ""
}

// RequireBearer authenticates the access token and rejects blacklisted ones.
func RequireBearer(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.RequestIDFromContext(r.Context())
			tok, ok := bearerToken(r)
			if !ok {
				slog.Warn("missing bearer token", "request_id", reqID)
				writeError(w, r, domain.ErrInvalidAccessToken)
				return
			}
			claims, err := auth.Authenticate(r.Context(), tok)
			if err != nil {
				slog.Warn("bearer rejected", "error", err, "request_id", reqID)
				writeError(w, r, err)
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeError(w, r, domain.ErrInvalidAccessToken)
				return
			}
			p := &principal{UserID: userID, AccessToken: tok, Claims: claims}
			if sid, err := uuid.Parse(claims.SessionID); err == nil {
				p.SessionID = &sid
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}
