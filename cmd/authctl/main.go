package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"authcore/internal/config"
	"authcore/internal/events"
	"authcore/internal/observability/logging"
	impl "authcore/internal/service/impl"
	"authcore/internal/store"
	"authcore/pkg/db"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errUserActive = errors.New("user is not disabled; disable the account before purging")

// app carries what every subcommand needs. The store is opened lazily so
// tests can inject one.
type app struct {
	cfg    config.Config
	store  *store.Store
	stdout io.Writer
}

func main() {
	a := &app{stdout: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for the auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.AddCommand(
		newMigrateCmd(a),
		newCleanupCmd(a),
		newStatsCmd(a),
		newRevokeUserCmd(a),
		newPurgeUserCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	a.cfg = config.Load()
	slog.SetDefault(logging.NewLogger(logging.Config{
		ServiceName: "authctl",
		Environment: a.cfg.Environment,
		Level:       a.cfg.LogLevel,
		Format:      a.cfg.LogFormat,
		Output:      os.Stderr,
	}))
	gdb, err := db.OpenGorm(db.Config{DSN: a.cfg.DatabaseURL, LogSQL: a.cfg.LogSQL})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.store = store.New(gdb)
	return nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.AutoMigrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "schema up to date")
			return nil
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	var tokensOnly, historyOnly bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune expired tokens and old login history once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokensOnly && historyOnly {
				return errors.New("--tokens and --history are mutually exclusive")
			}
			cleanup, err := a.cleanupService()
			if err != nil {
				return err
			}
			out := map[string]any{}
			if !historyOnly {
				report, err := cleanup.CleanupTokens(cmd.Context())
				if err != nil {
					return err
				}
				out["tokens"] = report
			}
			if !tokensOnly {
				n, err := cleanup.CleanupLoginHistory(cmd.Context())
				if err != nil {
					return err
				}
				out["deletedLoginHistory"] = n
			}
			return printJSON(a.stdout, out)
		},
	}
	cmd.Flags().BoolVar(&tokensOnly, "tokens", false, "only prune tokens")
	cmd.Flags().BoolVar(&historyOnly, "history", false, "only prune login history")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show access token blacklist counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bl, err := impl.NewBlacklistService(a.store, nil)
			if err != nil {
				return err
			}
			stats, err := bl.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(a.stdout, stats)
		},
	}
}

func newRevokeUserCmd(a *app) *cobra.Command {
	var rawID string
	cmd := &cobra.Command{
		Use:   "revoke-user",
		Short: "Revoke every active refresh token of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if _, err := a.store.Users().GetByID(cmd.Context(), userID); err != nil {
				return err
			}
			tokens := impl.NewTokenService(impl.DefaultTokenConfig(), a.store, nil, events.LogPublisher{Logger: slog.Default()})
			n, err := tokens.RevokeAll(cmd.Context(), userID, nil)
			if err != nil {
				return err
			}
			slog.Info("user tokens revoked", "user_id", userID, "count", n)
			return printJSON(a.stdout, map[string]any{"userId": userID, "revokedCount": n})
		},
	}
	cmd.Flags().StringVar(&rawID, "user", "", "id of the user whose sessions are revoked")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newPurgeUserCmd(a *app) *cobra.Command {
	var rawID string
	cmd := &cobra.Command{
		Use:   "purge-user",
		Short: "Hard-delete a disabled user and every row they own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			u, err := a.store.Users().GetByID(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if !u.IsDisabled() {
				return errUserActive
			}
			counts, err := a.store.PurgeUserData(cmd.Context(), userID)
			if err != nil {
				return err
			}
			slog.Info("user purged", "user_id", userID, "counts", counts)
			return printJSON(a.stdout, map[string]any{"userId": userID, "deleted": counts})
		},
	}
	cmd.Flags().StringVar(&rawID, "user", "", "id of the user to purge")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// cleanupService builds the pruning service. No signer is needed since
// cleanup never mints tokens.
func (a *app) cleanupService() (*impl.CleanupServiceImpl, error) {
	tokenCfg := impl.DefaultTokenConfig()
	if a.cfg.Retention.RevokedRefreshRetention > 0 {
		tokenCfg.RevokedRetention = a.cfg.Retention.RevokedRefreshRetention
	}
	tokens := impl.NewTokenService(tokenCfg, a.store, nil, nil)
	bl, err := impl.NewBlacklistService(a.store, nil)
	if err != nil {
		return nil, err
	}
	retention := a.cfg.Retention.LoginHistoryRetention
	if retention <= 0 {
		retention = config.DefaultRetention().LoginHistoryRetention
	}
	return impl.NewCleanupService(impl.CleanupConfig{LoginHistoryRetention: retention}, a.store, tokens, bl), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
