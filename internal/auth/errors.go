// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes attached to oops errors raised by this package. Transport
// layers map these codes onto external responses; the codes themselves are
// for logs and tests, never for clients.
const (
	// CodeValidation marks malformed or missing input, rejected before any
	// repository access. The per-field messages travel in the "messages"
	// error context.
	CodeValidation = "AUTH_VALIDATION"

	// CodeInvalidCredentials covers both unknown account and wrong password.
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"

	// CodeAccountLocked marks a login attempt against a locked account.
	CodeAccountLocked = "AUTH_ACCOUNT_LOCKED"

	// CodeSessionInvalid, CodeSessionExpired and CodeSessionTokenEmpty are
	// the internal reasons behind a single external unauthorized outcome.
	CodeSessionInvalid    = "SESSION_INVALID"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeSessionTokenEmpty = "SESSION_TOKEN_EMPTY"

	// CodeEmailNotFound marks a reset request for an unregistered email.
	CodeEmailNotFound = "RESET_EMAIL_NOT_FOUND"

	// CodeResetTokenInvalid and CodeResetTokenExpired mark reset redemption
	// failures: unknown or already-consumed tokens, and expired ones.
	CodeResetTokenInvalid = "RESET_TOKEN_INVALID"
	CodeResetTokenExpired = "RESET_TOKEN_EXPIRED"
)
