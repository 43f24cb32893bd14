// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Service provides login, logout and session validation.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger

	sessionTTL    time.Duration
	singleSession bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failure reporting.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithSingleSession revokes all prior sessions for a user on each
// successful login. Off by default: concurrent sessions are independent.
func WithSingleSession() ServiceOption {
	return func(s *Service) { s.singleSession = true }
}

// NewService creates a new Service.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		logger:     slog.Default(),
		sessionTTL: SessionTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger cannot be nil")
	}
	return s, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginResult is returned on successful authentication.
type LoginResult struct {
	// Token is the plaintext session token handed to the client. It is
	// never persisted; only its hash is.
	Token string

	// Session is the stored session record.
	Session *Session

	// User is the minimal profile of the authenticated account.
	User Profile
}

// Login authenticates a user and creates a session.
//
// Input is validated before any repository access; missing fields are
// reported together, not short-circuited. Unknown email and wrong password
// produce the same CodeInvalidCredentials error, and password verification
// runs against a dummy hash for unknown accounts to keep response time
// uniform.
func (s *Service) Login(ctx context.Context, creds Credentials, userAgent, ipAddress string) (*LoginResult, error) {
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}

	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(creds.Email))

	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			targetHash = dummyPasswordHash
			userExists = false
		} else {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify (constant-time) even when the account is unknown.
	valid, verifyErr := s.hasher.Verify(creds.Password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, s.invalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		if userExists {
			user.RecordFailure()
			if err := s.users.Update(ctx, user); err != nil {
				errutil.LogError(s.logger, "failed to record login failure", err)
			}
		}
		return nil, s.invalidCredentials()
	}

	// Check lockout AFTER password verification to maintain constant time.
	if user.IsLocked() {
		return nil, oops.Code(CodeAccountLocked).
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	user.RecordSuccess()

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(creds.Password); hashErr == nil {
			user.PasswordHash = newHash
		}
	}

	// Best effort: login succeeds even if the counter reset fails.
	if err := s.users.Update(ctx, user); err != nil {
		errutil.LogError(s.logger, "failed to update user after login", err)
	}

	if s.singleSession {
		if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "revoke prior sessions").
				Wrap(err)
		}
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, userAgent, ipAddress, time.Now().Add(s.sessionTTL))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return &LoginResult{
		Token:   token,
		Session: session,
		User:    user.Profile(),
	}, nil
}

func (s *Service) invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

// Logout revokes the session identified by the given plaintext token.
// Idempotent: an unknown, already-revoked or empty token is a no-op success.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// ValidateSession validates a session token and returns the session.
// An empty token is rejected immediately, before any repository access.
// Missing, unknown and expired tokens carry distinct internal codes but are
// all one unauthorized outcome externally.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code(CodeSessionTokenEmpty).Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code(CodeSessionExpired).Errorf("session has expired")
	}

	// Best effort: validation succeeds even if the timestamp update fails.
	if err := s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()); err != nil {
		errutil.LogError(s.logger, "failed to update session last seen", err)
	}

	return session, nil
}

// UserProfile returns the external profile for a user id, typically taken
// from a validated session. A missing user maps to an invalid session: the
// account may have been removed after the token was issued.
func (s *Service) UserProfile(ctx context.Context, userID ulid.ULID) (Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, oops.Code(CodeSessionInvalid).
				With("user_id", userID.String()).
				Errorf("session user no longer exists")
		}
		return Profile{}, oops.Code("AUTH_PROFILE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user.Profile(), nil
}

// CreateUser registers a new account with the given email and password.
// Used by the admin CLI and tests; there is no public registration surface.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateCredentials(Credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_USER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, oops.Code("AUTH_CREATE_USER_FAILED").
			With("operation", "persist user").
			With("email", user.Email).
			Wrap(err)
	}

	return user, nil
}
