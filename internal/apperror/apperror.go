// Package apperror defines the typed errors shared by every layer.
//
// The repository and service layers return *AppError values wrapping one of
// the sentinel kinds below. Only the HTTP layer (handler.writeError) decides
// which status code each kind becomes.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a kind, a message safe to show to API clients and,
// for input problems, the request field at fault.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing row. key is whatever the lookup used: an id,
// an email.
func NotFound(resource string, key any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, key),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on field, e.g.
// Conflict("user", "email") for a second account with the same address.
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// AsValidation re-kinds err as a validation error, keeping its message and
// field. Services use it where the API answers a conflict with 400.
func AsValidation(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ValidationFailed(appErr.Field, appErr.Message)
	}
	return ValidationFailed("", err.Error())
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
