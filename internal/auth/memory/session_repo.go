// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionRepository implements auth.SessionRepository in memory.
// All operations are safe for concurrent use.
type SessionRepository struct {
	mu          sync.RWMutex
	byID        map[ulid.ULID]*auth.Session
	byTokenHash map[string]ulid.ULID
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:        make(map[ulid.ULID]*auth.Session),
		byTokenHash: make(map[string]ulid.ULID),
	}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	r.byID[s.ID] = &s
	r.byTokenHash[s.TokenHash] = s.ID
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTokenHash[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	s := *r.byID[id]
	return &s, nil
}

// GetByUser retrieves all sessions for a user, newest first.
func (r *SessionRepository) GetByUser(_ context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*auth.Session
	for _, session := range r.byID {
		if session.UserID == userID {
			s := *session
			sessions = append(sessions, &s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	session.LastSeenAt = lastSeen
	return nil
}

// DeleteByTokenHash revokes the session with the given token hash.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byTokenHash[tokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	delete(r.byTokenHash, tokenHash)
	delete(r.byID, id)
	return nil
}

// DeleteByUser revokes all sessions for a user.
func (r *SessionRepository) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.byID {
		if session.UserID == userID {
			delete(r.byTokenHash, session.TokenHash)
			delete(r.byID, id)
		}
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for id, session := range r.byID {
		if now.After(session.ExpiresAt) {
			delete(r.byTokenHash, session.TokenHash)
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
