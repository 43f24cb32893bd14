// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Hour
)

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP service",
		Long: `Start the HTTP service providing login, logout, session validation,
and password reset endpoints. Without a database URL the service keeps all
state in memory, which is suitable only for development.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("addr", defaults.Server.Addr, "API listen address")
	cmd.Flags().String("metrics-addr", defaults.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string (empty = in-memory)")
	cmd.Flags().Duration("session-ttl", defaults.Auth.SessionTTL, "session token lifetime")
	cmd.Flags().Duration("reset-ttl", defaults.Auth.ResetTTL, "password reset token lifetime")
	cmd.Flags().Bool("single-session", defaults.Auth.SingleSession, "revoke prior sessions on each login")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")

	return cmd
}

// repositories bundles the backing store implementations selected at startup.
type repositories struct {
	users    auth.UserRepository
	sessions auth.SessionRepository
	resets   auth.PasswordResetRepository
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("gatehouse", version, cfg.Log.Format)

	slog.Info("starting gatehouse",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"session_ttl", cfg.Auth.SessionTTL,
		"single_session", cfg.Auth.SingleSession,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	repos, cleanup, err := openRepositories(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer cleanup()

	hasher := auth.NewArgon2idHasher()

	authOpts := []auth.ServiceOption{auth.WithSessionTTL(cfg.Auth.SessionTTL)}
	if cfg.Auth.SingleSession {
		authOpts = append(authOpts, auth.WithSingleSession())
	}
	authSvc, err := auth.NewService(repos.users, repos.sessions, hasher, authOpts...)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	// TODO: replace the log notifier with an SMTP notifier once mail
	// delivery settings land in the config.
	notifier := notify.NewLogNotifier(slog.Default())

	resetSvc, err := auth.NewPasswordResetService(
		repos.users, repos.resets, repos.sessions, hasher, notifier,
		auth.WithResetTTL(cfg.Auth.ResetTTL),
	)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	// Readiness flips once the API listener is accepting connections.
	var ready atomic.Bool

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, ready.Load)
		if _, err := obsServer.Start(); err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	handler, err := web.NewHandler(authSvc, resetSvc, slog.Default(), metrics)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	apiServer := web.NewServer(cfg.Server.Addr, web.NewRouter(handler, metrics))
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("API_START_FAILED").Wrap(err)
	}
	ready.Store(true)

	// Periodically clear expired sessions and reset tokens. Expiry is
	// enforced at validation time regardless; the sweep just caps growth.
	go sweepExpired(ctx, repos)

	cmd.Println("Gatehouse started on " + apiServer.Addr())
	slog.Info("gatehouse ready", "addr", apiServer.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	case serveErr := <-apiErrCh:
		if serveErr != nil {
			stopObservability(obsServer)
			return oops.Code("API_SERVER_FAILED").Wrap(serveErr)
		}
	}

	ready.Store(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer)

	slog.Info("shutdown complete")
	return nil
}

// openRepositories selects the PostgreSQL backing when a database URL is
// configured, running pending migrations first, and falls back to the
// in-memory backing otherwise. The returned cleanup releases the pool.
func openRepositories(ctx context.Context, databaseURL string) (repositories, func(), error) {
	if databaseURL == "" {
		slog.Warn("no database URL configured, using in-memory store; all state is lost on restart")
		return repositories{
			users:    memory.NewUserRepository(),
			sessions: memory.NewSessionRepository(),
			resets:   memory.NewPasswordResetRepository(),
		}, func() {}, nil
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := migrator.Up(); err != nil {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(slog.Default(), "closing migrator", closeErr)
		}
		return repositories{}, nil, err
	}
	if err := migrator.Close(); err != nil {
		return repositories{}, nil, err
	}

	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return repositories{}, nil, err
	}

	return repositories{
		users:    postgres.NewUserRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		resets:   postgres.NewPasswordResetRepository(pool),
	}, pool.Close, nil
}

// sweepExpired removes expired sessions and reset tokens on an interval
// until ctx is cancelled.
func sweepExpired(ctx context.Context, repos repositories) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := repos.sessions.DeleteExpired(ctx); err != nil {
				errutil.LogError(slog.Default(), "sweeping expired sessions", err)
			} else if n > 0 {
				slog.Debug("swept expired sessions", "count", n)
			}
			if n, err := repos.resets.DeleteExpired(ctx); err != nil {
				errutil.LogError(slog.Default(), "sweeping expired reset tokens", err)
			} else if n > 0 {
				slog.Debug("swept expired reset tokens", "count", n)
			}
		}
	}
}

func stopObservability(s *observability.Server) {
	if s == nil {
		return
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}
