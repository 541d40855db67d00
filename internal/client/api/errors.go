package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable marks transport-level failures: the request never produced
// an HTTP response.
var ErrUnavailable = errors.New("server unavailable")

// Error is a normalized non-2xx backend response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: HTTP %d: %s", e.StatusCode, e.Message)
}

func statusIs(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.StatusCode == status
}

// IsUnauthorized reports whether err is a 401 backend response.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is a 403 backend response (ownership
// mismatch).
func IsForbidden(err error) bool { return statusIs(err, http.StatusForbidden) }

// IsNotFound reports whether err is a 404 backend response.
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }
