// Package apperror defines the error taxonomy shared by the service and API layers.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an application error
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindStoreFailure Kind = "store_failure"
)

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error carried across layers
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two application errors by kind, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "Invalid input."}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Authentication credentials were not provided."}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "You do not have permission to perform this action."}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "Not found."}
	ErrStoreFailure = &Error{Kind: KindStoreFailure, Message: "Internal server error."}
)

// Validation builds a validation error with optional field details
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Unauthorized builds an authentication error
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden builds an authorization error
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound builds a missing resource error
func NotFound() *Error {
	return &Error{Kind: KindNotFound, Message: ErrNotFound.Message}
}

// Store wraps an unexpected store-layer error. The cause is kept for logging only.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: op, Err: err}
}

// KindOf returns the kind of err, treating unknown errors as store failures
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreFailure
}

// HTTPStatus maps an error onto its fixed response status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the client-safe message for err. Store failures never expose their cause.
func Detail(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindStoreFailure {
		return ErrStoreFailure.Message
	}
	return appErr.Message
}

// FieldsOf returns the field errors attached to a validation error
func FieldsOf(err error) []FieldError {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
