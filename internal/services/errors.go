package services

import (
	"errors"
	"fmt"
)

// Error classes returned by the services. Handlers map them to HTTP statuses.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrTokenExpired is an ErrUnauthorized that callers can tell apart.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrUnauthorized)
)

// Error pairs an error class with the message shown to the client.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(class error, message string) error {
	return &Error{Err: class, Message: message}
}
