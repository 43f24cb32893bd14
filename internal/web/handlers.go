// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web exposes the authentication core over HTTP. Request bodies are
// JSON; session tokens travel in the Authorization header as bearer
// credentials. All user input is decoded as data and echoed back only
// through JSON encoding.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// maxBodyBytes bounds request bodies; auth payloads are tiny.
const maxBodyBytes = 16 << 10

// Handler serves the authentication API.
type Handler struct {
	auth    *auth.Service
	resets  *auth.PasswordResetService
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHandler creates a Handler. metrics may be nil to disable recording.
func NewHandler(authSvc *auth.Service, resetSvc *auth.PasswordResetService, logger *slog.Logger, metrics *observability.Metrics) (*Handler, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if resetSvc == nil {
		return nil, oops.Errorf("reset service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:    authSvc,
		resets:  resetSvc,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Request and response bodies.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  auth.Profile `json:"user"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decodeJSON decodes a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return oops.Code(auth.CodeValidation).
			With("messages", []string{"Invalid request body"}).
			Wrap(err)
	}
	return nil
}

// Login authenticates a user and returns a fresh session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	creds := auth.Credentials{Email: req.Email, Password: req.Password}
	result, err := h.auth.Login(r.Context(), creds, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		h.recordLogin(loginOutcome(err))
		writeError(w, h.logger, err)
		return
	}

	h.recordLogin("success")
	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// Logout revokes the presented session token. Always succeeds: revoking an
// unknown or already-revoked token is a no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Me returns the profile of the authenticated user. The route is guarded by
// RequireSession; it doubles as the canonical protected resource.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: msgUnauthorized})
		return
	}

	profile, err := h.auth.UserProfile(r.Context(), session.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ForgotPassword starts the reset flow for the given email. The success
// acknowledgment is fixed and says nothing about delivery.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		h.recordReset(resetOutcome(err))
		writeError(w, h.logger, err)
		return
	}

	h.recordReset("sent")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset email sent"})
}

// ResetPassword redeems a reset token and sets the new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.resets.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

func (h *Handler) recordLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) recordReset(outcome string) {
	if h.metrics != nil {
		h.metrics.ResetRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// loginOutcome maps a login error onto a metrics label.
func loginOutcome(err error) string {
	switch errorCode(err) {
	case auth.CodeValidation:
		return "validation"
	case auth.CodeInvalidCredentials:
		return "invalid_credentials"
	case auth.CodeAccountLocked:
		return "locked"
	default:
		return "error"
	}
}

// resetOutcome maps a reset request error onto a metrics label.
func resetOutcome(err error) string {
	switch errorCode(err) {
	case auth.CodeEmailNotFound:
		return "not_found"
	case auth.CodeValidation:
		return "validation"
	default:
		return "error"
	}
}
