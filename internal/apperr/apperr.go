// Package apperr defines the failure taxonomy shared by the domain packages
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindInvalidState Kind = "INVALID_STATE"
	KindValidation   Kind = "VALIDATION_FAILED"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindConflict     Kind = "CONFLICT"
	KindInternal     Kind = "INTERNAL"
)

// Status returns the HTTP status for the kind
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Message is safe to show to callers;
// Err carries the underlying cause and is only exposed outside production.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInternal     = &Error{Kind: KindInternal}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidState, format, args...)
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// ValidationFields builds a validation failure carrying per-field messages
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "invalid request", Fields: fields}
}

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// Internal wraps an unexpected failure; msg describes the operation that failed
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// As extracts the classified error, treating anything unclassified as internal
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "internal server error")
}

// KindOf returns the kind of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	return As(err).Kind
}
