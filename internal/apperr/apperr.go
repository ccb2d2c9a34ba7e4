// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperr defines the error kinds surfaced to API callers.
package apperr

import "errors"

// Error kinds. Use errors.Is to test an error against a kind.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCode         = errors.New("invalid or expired code")
	ErrEmailDelivery       = errors.New("email delivery failed")
	ErrReferentialConflict = errors.New("referenced by other records")
)

// Error pairs an error kind with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

// New returns an *Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Message returns the caller-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return fallback
}
