// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package notify provides auth.Notifier implementations. Real delivery
// transports (SMTP relays, provider APIs) plug in here; the core never
// depends on a concrete one.
package notify

import (
	"context"
	"log/slog"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// LogNotifier writes reset tokens to the log instead of delivering them.
// Development and test use only: the plaintext token ends up in the log
// stream, which is exactly what a production notifier must never do.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendPasswordReset logs the reset token for the recipient.
func (n *LogNotifier) SendPasswordReset(ctx context.Context, recipient, token string) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"recipient", recipient,
		"token", token,
	)
	return nil
}

// Compile-time interface check.
var _ auth.Notifier = (*LogNotifier)(nil)
