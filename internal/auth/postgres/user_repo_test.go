// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func userColumns() []string {
	return []string{"id", "email", "password_hash", "failed_attempts", "locked_until", "created_at", "updated_at"}
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	user, err := auth.NewUser("user@example.com", "$argon2id$hash")
	require.NoError(t, err)

	t.Run("inserts the user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.PasswordHash, user.FailedAttempts,
				user.LockedUntil, user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.Create(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to email exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.PasswordHash, user.FailedAttempts,
				user.LockedUntil, user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		repo := postgres.NewUserRepository(mock)
		createErr := repo.Create(ctx, user)
		require.Error(t, createErr)
		errutil.AssertErrorCode(t, createErr, "USER_EMAIL_EXISTS")
	})

	t.Run("other database errors are wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.PasswordHash, user.FailedAttempts,
				user.LockedUntil, user.CreatedAt, user.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		repo := postgres.NewUserRepository(mock)
		createErr := repo.Create(ctx, user)
		require.Error(t, createErr)
		errutil.AssertErrorCode(t, createErr, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		rows := pgxmock.NewRows(userColumns()).
			AddRow(id.String(), "user@example.com", "$argon2id$hash", 0, (*time.Time)(nil), now, now)
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("user@example.com").
			WillReturnRows(rows)

		repo := postgres.NewUserRepository(mock)
		user, err := repo.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "user@example.com", user.Email)
		assert.Nil(t, user.LockedUntil)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("ghost@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns()))

		repo := postgres.NewUserRepository(mock)
		_, getErr := repo.GetByEmail(ctx, "ghost@example.com")
		require.Error(t, getErr)
		assert.ErrorIs(t, getErr, auth.ErrNotFound)
	})

	t.Run("email travels as a bound parameter", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		// A hostile email reaches the driver as an argument; the SQL text
		// never changes shape.
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("' OR '1'='1").
			WillReturnRows(pgxmock.NewRows(userColumns()))

		repo := postgres.NewUserRepository(mock)
		_, getErr := repo.GetByEmail(ctx, "' OR '1'='1")
		assert.ErrorIs(t, getErr, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid stored id is rejected", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		rows := pgxmock.NewRows(userColumns()).
			AddRow("not-a-ulid", "user@example.com", "$argon2id$hash", 0, (*time.Time)(nil), now, now)
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs(id.String()).
			WillReturnRows(rows)

		repo := postgres.NewUserRepository(mock)
		_, getErr := repo.GetByID(ctx, id)
		require.Error(t, getErr)
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	user, err := auth.NewUser("user@example.com", "$argon2id$hash")
	require.NoError(t, err)

	t.Run("updates the user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID.String(), user.PasswordHash, user.FailedAttempts,
				user.LockedUntil, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.Update(ctx, user))
	})

	t.Run("zero rows affected maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID.String(), user.PasswordHash, user.FailedAttempts,
				user.LockedUntil, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewUserRepository(mock)
		assert.ErrorIs(t, repo.Update(ctx, user), auth.ErrNotFound)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates the hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "$argon2id$newhash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.UpdatePassword(ctx, id, "$argon2id$newhash"))
	})

	t.Run("unknown user maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "$argon2id$newhash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewUserRepository(mock)
		assert.ErrorIs(t, repo.UpdatePassword(ctx, id, "$argon2id$newhash"), auth.ErrNotFound)
	})
}
