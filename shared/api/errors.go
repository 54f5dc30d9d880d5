package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is checks against *Error
var (
	// ErrUnsuccessful matches every *Error: the call reached the server
	// but did not succeed
	ErrUnsuccessful = errors.New("request unsuccessful")

	// ErrUnauthorized matches 401 and 403 responses
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("not found")
)

// Error is a failed call to the auction API: either a non-2xx status or a
// 2xx envelope carrying success=false.
type Error struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s failed (status %d)", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// Is implements errors.Is support
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnsuccessful:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Message returns the text to show a user for err. Server-provided
// messages are preferred; transport failures get a generic network text.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	return "Network error. Please try again."
}
