// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
)

func newUser(t *testing.T, email string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(email, "$argon2id$hash")
	require.NoError(t, err)
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get by ID", func(t *testing.T) {
		repo := memory.NewUserRepository()
		user := newUser(t, "user@example.com")
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)
	})

	t.Run("get by email", func(t *testing.T) {
		repo := memory.NewUserRepository()
		user := newUser(t, "user@example.com")
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email fails", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Create(ctx, newUser(t, "user@example.com")))
		assert.Error(t, repo.Create(ctx, newUser(t, "user@example.com")))
	})

	t.Run("unknown lookups return ErrNotFound", func(t *testing.T) {
		repo := memory.NewUserRepository()
		_, err := repo.GetByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.GetByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("email is matched literally, never interpreted", func(t *testing.T) {
		repo := memory.NewUserRepository()
		require.NoError(t, repo.Create(ctx, newUser(t, "user@example.com")))

		_, err := repo.GetByEmail(ctx, "' OR '1'='1")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("update replaces the record", func(t *testing.T) {
		repo := memory.NewUserRepository()
		user := newUser(t, "user@example.com")
		require.NoError(t, repo.Create(ctx, user))

		user.FailedAttempts = 3
		require.NoError(t, repo.Update(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.FailedAttempts)
	})

	t.Run("update of unknown user fails", func(t *testing.T) {
		repo := memory.NewUserRepository()
		assert.ErrorIs(t, repo.Update(ctx, newUser(t, "ghost@example.com")), auth.ErrNotFound)
	})

	t.Run("update password", func(t *testing.T) {
		repo := memory.NewUserRepository()
		user := newUser(t, "user@example.com")
		require.NoError(t, repo.Create(ctx, user))

		require.NoError(t, repo.UpdatePassword(ctx, user.ID, "$argon2id$newhash"))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$newhash", got.PasswordHash)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := memory.NewUserRepository()
		user := newUser(t, "user@example.com")
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		got.FailedAttempts = 99
		got.UpdatedAt = time.Now().Add(time.Hour)

		again, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, again.FailedAttempts)
	})
}
