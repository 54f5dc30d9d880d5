// Package service holds the client-side rules and orchestration behind
// the auctionctl commands: input validation, bidding pre-checks, session
// handling and notification polling.
package service

import "errors"

// ErrInvalidInput matches every *ValidationError
var ErrInvalidInput = errors.New("invalid input")

// ValidationError is input rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
