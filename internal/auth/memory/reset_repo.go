// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// PasswordResetRepository implements auth.PasswordResetRepository in memory.
// All operations are safe for concurrent use.
type PasswordResetRepository struct {
	mu          sync.Mutex
	byTokenHash map[string]*auth.PasswordReset
}

// NewPasswordResetRepository creates an empty PasswordResetRepository.
func NewPasswordResetRepository() *PasswordResetRepository {
	return &PasswordResetRepository{
		byTokenHash: make(map[string]*auth.PasswordReset),
	}
}

// Create stores a new password reset request.
func (r *PasswordResetRepository) Create(_ context.Context, reset *auth.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := *reset
	r.byTokenHash[rec.TokenHash] = &rec
	return nil
}

// Consume atomically claims and removes the reset with the given token
// hash. The map delete happens under the lock, so concurrent claims for the
// same hash see exactly one winner.
func (r *PasswordResetRepository) Consume(_ context.Context, tokenHash string) (*auth.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reset, ok := r.byTokenHash[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	delete(r.byTokenHash, tokenHash)
	rec := *reset
	return &rec, nil
}

// DeleteByUser removes all reset requests for a user.
func (r *PasswordResetRepository) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, reset := range r.byTokenHash {
		if reset.UserID == userID {
			delete(r.byTokenHash, hash)
		}
	}
	return nil
}

// DeleteExpired removes all expired reset requests and returns the count.
func (r *PasswordResetRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for hash, reset := range r.byTokenHash {
		if now.After(reset.ExpiresAt) {
			delete(r.byTokenHash, hash)
			deleted++
		}
	}
	return deleted, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
