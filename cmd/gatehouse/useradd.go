// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

// Default timeout for the user-add command.
const defaultUserAddTimeout = 30 * time.Second

// userAddConfig holds configuration for the user-add command.
type userAddConfig struct {
	email       string
	passwordEnv string
	timeout     time.Duration
}

// newUserAddCmd creates the user-add subcommand.
func newUserAddCmd() *cobra.Command {
	cfg := &userAddConfig{}

	cmd := &cobra.Command{
		Use:   "user-add",
		Short: "Create a user account",
		Long: `Creates a user account with the given email address. The password is
read from the environment variable named by --password-env so it never
appears in the process list or shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "email address for the new account")
	cmd.Flags().StringVar(&cfg.passwordEnv, "password-env", "GATEHOUSE_PASSWORD", "environment variable holding the password")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultUserAddTimeout, "timeout for database operations (e.g., 30s, 1m)")
	//nolint:errcheck // flag exists, MarkFlagRequired cannot fail
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserAdd(cmd *cobra.Command, _ []string, cfg *userAddConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	password := os.Getenv(cfg.passwordEnv)
	if password == "" {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", cfg.passwordEnv)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	sessions := postgres.NewSessionRepository(pool)

	svc, err := auth.NewService(users, sessions, auth.NewArgon2idHasher())
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	user, err := svc.CreateUser(ctx, cfg.email, password)
	if err != nil {
		// Duplicate email surfaces as a unique constraint violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			cmd.Println("Account already exists, nothing to do")
			return nil
		}
		return err
	}

	cmd.Printf("Created account %s (%s)\n", user.Email, user.ID)
	return nil
}
