package http

import (
	"net/http"
	"time"

	"authcore/internal/httpx"
	"authcore/internal/observability/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	TrustProxy          bool
	CORSOrigins         []string
	RateLimitPerMin     int
	AuthRateLimitPerMin int
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Middlewares ---
	r.Use(middleware.WithRequestAndTrace)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.WithMetrics)
	r.Use(httpx.LogRequests)
	r.Use(chimw.Recoverer)
	if cfg.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "X-Trace-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id", "Retry-After"},
		AllowCredentials: len(cfg.CORSOrigins) > 0,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/.well-known/jwks.json", h.JWKS)

	bearer := RequireBearer(h.Auth)

	// credential endpoints get a tighter limiter
	credentials := func(r chi.Router) {
		if cfg.AuthRateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(cfg.AuthRateLimitPerMin, time.Minute))
		}
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			credentials(r)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})
		r.Post("/refresh", h.Refresh)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/password-strength", h.PasswordStrength)

		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Post("/logout", h.Logout)
			r.Post("/resend-verification", h.ResendVerification)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(bearer)

		r.Route("/v1/me", func(r chi.Router) {
			r.Get("/", h.Me)
			r.Patch("/", h.UpdateMe)
			r.Delete("/", h.DeleteMe)
			r.Get("/export", h.ExportMe)
			r.Get("/failed-attempts", h.FailedAttempts)
		})

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/revoke-others", h.RevokeOtherSessions)
			r.Delete("/{id}", h.RevokeSession)
		})
		r.Get("/v1/login-history", h.LoginHistory)

		r.Route("/v1/2fa", func(r chi.Router) {
			r.Post("/enable", h.EnableTwoFactor)
			r.Post("/confirm", h.ConfirmTwoFactor)
			r.Post("/disable", h.DisableTwoFactor)
			r.Group(func(r chi.Router) {
				credentials(r)
				r.Post("/verify", h.VerifyTwoFactor)
				r.Post("/backup-codes/consume", h.ConsumeBackupCode)
			})
		})
	})

	return r
}

func originsIfSet(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}
