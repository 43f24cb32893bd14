// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// errorResponse is the JSON error envelope. Message carries the external
// message; Errors lists per-field validation messages when present. Values
// are always JSON-encoded, never reflected into markup, so client input in
// an error path cannot become executable content.
type errorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// External messages for non-validation errors. Deliberately generic: the
// guard hides why a token was rejected, and login hides whether the email
// is registered.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgUnauthorized       = "Unauthorized"
	msgAccountLocked      = "Account temporarily locked"
	msgEmailNotFound      = "Email not found"
	msgInvalidResetToken  = "Invalid or expired reset token"
	msgInternalError      = "Internal server error"
)

// errorCode extracts the oops code from an error, or "" if none.
func errorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}

// writeError maps an internal error onto an external HTTP response. The
// internal code and context go to the log; the response body carries only
// the fixed external message for that class of failure.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var status int
	resp := errorResponse{}

	switch errorCode(err) {
	case auth.CodeValidation:
		status = http.StatusBadRequest
		resp.Errors = auth.ValidationMessages(err)
		if len(resp.Errors) > 0 {
			resp.Message = resp.Errors[0]
		} else {
			resp.Message = "Invalid request"
		}
	case auth.CodeInvalidCredentials:
		status = http.StatusUnauthorized
		resp.Message = msgInvalidCredentials
	case auth.CodeAccountLocked:
		status = http.StatusLocked
		resp.Message = msgAccountLocked
	case auth.CodeSessionTokenEmpty, auth.CodeSessionInvalid, auth.CodeSessionExpired:
		status = http.StatusUnauthorized
		resp.Message = msgUnauthorized
	case auth.CodeEmailNotFound:
		status = http.StatusNotFound
		resp.Message = msgEmailNotFound
	case auth.CodeResetTokenInvalid, auth.CodeResetTokenExpired:
		status = http.StatusBadRequest
		resp.Message = msgInvalidResetToken
	default:
		status = http.StatusInternalServerError
		resp.Message = msgInternalError
		errutil.LogError(logger, "request failed", err)
	}

	writeJSON(w, status, resp)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(body)
}
