// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

// External validation messages. These strings are part of the API contract
// and are asserted verbatim by clients; do not reword them.
const (
	MsgEmailRequired    = "Email is required"
	MsgPasswordRequired = "Password is required"
	MsgEmailInvalid     = "Invalid email format"
)

// Credentials is the login input. Validation collects every violated rule
// instead of stopping at the first, so a form with both fields empty reports
// both messages in one response.
type Credentials struct {
	Email    string `json:"email" validate:"required,email_format"`
	Password string `json:"password" validate:"required"`
}

var credentialsValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Single source of truth for the address shape; the same regex guards
	// NewUser. Tag order matters: required fires alone on empty input.
	must(v.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		email := fl.Field().String()
		return len(email) <= MaxEmailLength && emailRegex.MatchString(NormalizeEmail(email))
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidateCredentials checks login input before any storage access.
// On failure it returns a CodeValidation error carrying the external
// per-field messages in the "messages" context entry.
func ValidateCredentials(creds Credentials) error {
	err := credentialsValidator.Struct(creds)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return oops.Code(CodeValidation).Wrap(err)
	}

	var msgs []string
	for _, fe := range fieldErrs {
		switch {
		case fe.Field() == "Email" && fe.Tag() == "required":
			msgs = append(msgs, MsgEmailRequired)
		case fe.Field() == "Email":
			msgs = append(msgs, MsgEmailInvalid)
		case fe.Field() == "Password":
			msgs = append(msgs, MsgPasswordRequired)
		}
	}

	return oops.Code(CodeValidation).
		With("messages", msgs).
		Errorf("invalid credentials input")
}

// ValidationMessages extracts the external per-field messages from a
// CodeValidation error. Returns nil if err carries none.
func ValidationMessages(err error) []string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	msgs, ok := oopsErr.Context()["messages"].([]string)
	if !ok {
		return nil
	}
	return msgs
}
