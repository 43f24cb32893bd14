// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Notifier delivers a reset token to the account holder. Delivery (email,
// SMS, carrier pigeon) is an external concern; implementations live outside
// this package.
type Notifier interface {
	// SendPasswordReset delivers the plaintext reset token to the recipient.
	SendPasswordReset(ctx context.Context, recipient, token string) error
}

// PasswordResetService handles password reset operations.
type PasswordResetService struct {
	users    UserRepository
	resets   PasswordResetRepository
	sessions SessionRepository
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger

	resetTTL time.Duration
}

// ResetServiceOption configures a PasswordResetService.
type ResetServiceOption func(*PasswordResetService)

// WithResetLogger sets the logger used for best-effort failure reporting.
func WithResetLogger(logger *slog.Logger) ResetServiceOption {
	return func(s *PasswordResetService) { s.logger = logger }
}

// WithResetTTL overrides the default reset token lifetime.
func WithResetTTL(ttl time.Duration) ResetServiceOption {
	return func(s *PasswordResetService) { s.resetTTL = ttl }
}

// NewPasswordResetService creates a new PasswordResetService.
// The sessions repository is used to revoke every open session for a user
// after a successful password reset.
func NewPasswordResetService(
	users UserRepository,
	resets PasswordResetRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	notifier Notifier,
	opts ...ResetServiceOption,
) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("resets repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}

	s := &PasswordResetService{
		users:    users,
		resets:   resets,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		logger:   slog.Default(),
		resetTTL: ResetTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger cannot be nil")
	}
	return s, nil
}

// RequestReset generates a single-use reset token for the account with the
// given email and hands it to the notifier.
//
// An unregistered email fails with CodeEmailNotFound. Notifier failures are
// logged for operators but never surfaced: the caller's acknowledgment must
// not reveal anything about downstream delivery.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeEmailNotFound).Errorf("email not found")
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	reset, err := NewPasswordReset(user.ID, hash, time.Now().Add(s.resetTTL))
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "create password reset").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist password reset").
			Wrap(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		errutil.LogError(s.logger, "reset token delivery failed", oops.
			Code("RESET_NOTIFY_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err))
	}

	return nil
}

// ResetPassword redeems a reset token and sets a new password.
//
// Redemption is atomic: the token is consumed in a single repository
// operation, so of any number of concurrent attempts exactly one succeeds
// and the rest fail with CodeResetTokenInvalid. Expired tokens fail with
// CodeResetTokenExpired and are destroyed by the claim itself. A successful
// reset revokes every open session for the user.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return oops.Code(CodeValidation).
			With("messages", []string{MsgPasswordRequired}).
			Errorf("new password cannot be empty")
	}
	if token == "" {
		return oops.Code(CodeResetTokenInvalid).Errorf("reset token cannot be empty")
	}

	reset, err := s.resets.Consume(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeResetTokenInvalid).Errorf("reset token not found or already used")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	if reset.IsExpired() {
		return oops.Code(CodeResetTokenExpired).Errorf("reset token has expired")
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, reset.UserID, hashedPassword); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	// Cleanup after the credential change is durable. Both calls are best
	// effort: the password is already updated.
	if err := s.resets.DeleteByUser(ctx, reset.UserID); err != nil {
		errutil.LogError(s.logger, "failed to delete remaining reset tokens", err)
	}
	if err := s.sessions.DeleteByUser(ctx, reset.UserID); err != nil {
		errutil.LogError(s.logger, "failed to revoke sessions after password reset", err)
	}

	return nil
}
