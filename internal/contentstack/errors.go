package contentstack

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredentials is returned when the API key or management token is empty
	ErrMissingCredentials = errors.New("contentstack api key and management token are required")

	// ErrEmptyResponse is returned when a response lacks the expected object
	ErrEmptyResponse = errors.New("contentstack response missing expected object")
)

// APIError is a non-2xx response from the management API.
type APIError struct {
	Op         string
	StatusCode int
	Code       int    // error_code from the response body
	Message    string // error_message from the response body
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("contentstack %s failed with status %d: %s", e.Op, e.StatusCode, msg)
}

// Fatal reports errors that no retry or other asset can recover from.
func (e *APIError) Fatal() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 from the management API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
