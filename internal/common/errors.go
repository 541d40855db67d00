// Package common defines shared constants and sentinel errors used across
// the ZenChat client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Validation errors: missing required input, detected before any
	// network call is made.
	ErrValidation = errors.New("validation error")

	// Auth state errors.
	ErrNotAuthenticated = errors.New("not authenticated")
)
