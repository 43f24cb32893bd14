// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the authentication core for Gatehouse.
//
// # Domain Types
//
// Domain types (User, Session, PasswordReset) should be created using
// their respective constructors:
//   - NewUser - creates a User with a normalized email and password hash
//   - NewSession - creates a Session bound to a user and expiry
//   - NewPasswordReset - creates a PasswordReset bound to a user and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, logout, session validation
//   - PasswordResetService - password reset request and redemption
//
// Services are created with New*Service constructors that validate
// dependencies.
//
// External error surfaces are deliberately narrow: credential mismatch and
// unknown account are the same error, and every session-guard failure is a
// single unauthorized outcome. Internal error codes stay distinct so
// operators can still tell the cases apart in logs.
package auth
