// Package apperror defines the error taxonomy shared by every layer.
//
// Services and repositories return *AppError values (usually wrapped with
// fmt.Errorf("...: %w", err)). Handlers never inspect messages; they test the
// sentinel with errors.Is and map it to a status code.
//
//	ErrNotFound     → 404  no record for the user/skill/challenge/name
//	ErrValidation   → 400  malformed input
//	ErrConflict     → 409  uniqueness violation (e.g. username taken)
//	ErrForbidden    → 403  caller may not do this (e.g. select a locked title)
//	ErrUnauthorized → 401  missing or bad credentials
//	ErrUnavailable  → 503  storage failed transiently; retry the whole operation
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable, safe to show to clients
	Field   string // optional: input field at fault
	Cause   error  // optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// WithSuggestions appends "did you mean" hints to the message.
func (e *AppError) WithSuggestions(suggestions []string) *AppError {
	if len(suggestions) == 0 {
		return e
	}
	e.Message = fmt.Sprintf("%s (did you mean: %s?)", e.Message, strings.Join(suggestions, ", "))
	return e
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for failed logins and bad sessions. The message is
// deliberately the same for "no such user" and "wrong password".
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable marks a transient storage failure. op names the operation that
// failed; cause is kept for logs.
func Unavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s: storage temporarily unavailable", op),
		Cause:   cause,
	}
}
