package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authcore/internal/config"
	"authcore/internal/events"
	"authcore/internal/jwtsigner"
	"authcore/internal/observability/logging"
	"authcore/internal/observability/metrics"
	impl "authcore/internal/service/impl"
	"authcore/internal/store"
	httpx "authcore/internal/transport/http"
	"authcore/pkg/db"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "auth",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting service", "env", cfg.Environment)

	// 1) DB
	gdb, err := db.OpenGorm(db.Config{
		DSN:          cfg.DatabaseURL,
		LogSQL:       cfg.LogSQL,
		MaxOpenConns: 20,
		MaxIdleConns: 5,
		ConnMaxLife:  30 * time.Minute,
	})
	if err != nil {
		return err
	}
	st := store.New(gdb)
	if err := st.AutoMigrate(ctx); err != nil {
		return err
	}

	// 2) Redis mirror (optional)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the database stays authoritative; keep serving without the mirror
			logger.Warn("redis unavailable, blacklist mirror degraded", "addr", cfg.RedisAddr, "error", err)
		}
	}

	// 3) Signer
	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}

	// 4) Services
	metrics.MustRegister("auth")
	pub := events.LogPublisher{Logger: logger}

	passwords := impl.NewPasswordServiceArgon2id()
	tokens := impl.NewTokenService(impl.TokenConfig{
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		RevokedRetention: cfg.Retention.RevokedRefreshRetention,
	}, st, signer, pub)
	blacklist, err := impl.NewBlacklistService(st, rdb)
	if err != nil {
		return err
	}
	security := impl.NewSecurityService(cfg.Policy, st, passwords, pub)

	mfaCfg := impl.DefaultMFAConfig()
	mfaCfg.Issuer = cfg.Issuer
	mfaCfg.Skew = cfg.Policy.TOTPSkew
	mfaCfg.BackupCodeCount = cfg.Policy.BackupCodeCount
	mfa := impl.NewMFAService(mfaCfg, st, passwords, pub)

	auth := impl.NewAuthService(impl.AuthConfig{
		EmailTokenTTL: cfg.EmailTokenTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		Policy:        cfg.Policy,
	}, impl.AuthDeps{
		Store:     st,
		Passwords: passwords,
		Tokens:    tokens,
		Signer:    signer,
		Blacklist: blacklist,
		Security:  security,
		MFA:       mfa,
		Email:     impl.NewLogEmailService(cfg.MailFrom, cfg.AppBaseURL, logger),
		Events:    pub,
	})

	cleanup := impl.NewCleanupService(impl.CleanupConfig{
		LoginHistoryRetention: cfg.Retention.LoginHistoryRetention,
		TokenInterval:         cfg.Retention.TokenCleanupInterval,
		LoginHistoryInterval:  cfg.Retention.HistoryCleanupInterval,
	}, st, tokens, blacklist)

	// 5) HTTP router
	router := httpx.NewRouter(&httpx.Handler{
		Auth:     auth,
		MFA:      mfa,
		Security: security,
		Keys:     signer,
	}, httpx.RouterConfig{
		TrustProxy:          cfg.TrustProxy,
		CORSOrigins:         cfg.CORSOrigins,
		RateLimitPerMin:     cfg.RateLimitPerMin,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("auth service listening", "addr", srv.Addr, "issuer", cfg.Issuer, "alg", cfg.SigningAlg)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return cleanup.Run(gctx)
	})
	return g.Wait()
}

func newSigner(cfg config.Config) (*jwtsigner.Signer, error) {
	if cfg.SigningAlg == "EDDSA" {
		if cfg.SigningKey == "" {
			slog.Warn("no SIGNING_KEY set, generating an ephemeral ed25519 key")
		}
		return jwtsigner.NewEd25519FromBase64(cfg.SigningKey, cfg.SigningKeyID, cfg.Issuer, cfg.Audience)
	}
	return jwtsigner.NewHS256([]byte(cfg.SigningKey), cfg.SigningKeyID, cfg.Issuer, cfg.Audience)
}
