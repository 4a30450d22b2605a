// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer translates them to status
// codes in one place (handler.writeError). Every kind here maps to a
// user-visible message. There are no fatal kinds in this application.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: no matching profile/token/chat.
	ErrNotFound = errors.New("not found")
	// ErrExpired: a token matched but its expiry has passed. Kept distinct
	// from ErrNotFound so callers can render "token expired" rather than
	// "invalid token".
	ErrExpired = errors.New("expired")
	// ErrValidation: a field-level constraint violation.
	ErrValidation = errors.New("validation error")
	// ErrConflict: a uniqueness clash (username, email, chat name).
	ErrConflict = errors.New("conflict")
	// ErrForbidden: the actor lacks permission for a mutating operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotApplicable: the operation was requested in a state where it
	// has no effect, e.g. resending a confirmation mail to an already
	// confirmed profile.
	ErrNotApplicable = errors.New("not applicable")
)

// AppError carries a sentinel error together with a human-readable message
// and, for validation failures, the offending field.
type AppError struct {
	Err     error  // sentinel error, matched with errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, key),
	}
}

// NotFoundMsg is NotFound with caller-supplied wording, for the places
// where the exact user-facing message matters.
func NotFoundMsg(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func Expired(message string) *AppError {
	return &AppError{
		Err:     ErrExpired,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func NotApplicable(message string) *AppError {
	return &AppError{
		Err:     ErrNotApplicable,
		Message: message,
	}
}
