package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to API clients.
type ErrorKind string

const (
	KindValidation      ErrorKind = "ValidationError"
	KindUnauthorized    ErrorKind = "Unauthorized"
	KindForbidden       ErrorKind = "Forbidden"
	KindNotFound        ErrorKind = "NotFound"
	KindPayloadTooLarge ErrorKind = "PayloadTooLarge"
	KindStorage         ErrorKind = "StorageError"
	KindNotFoundRoute   ErrorKind = "NotFoundRoute"
	KindUnhandled       ErrorKind = "UnhandledError"
)

// AppError carries the HTTP status, business code and client message of a failure.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError of the same kind, so errors.Is(err, &AppError{Kind: KindForbidden}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// Validation returns a 422 error for missing or invalid fields.
func Validation(code int, message string) *AppError {
	return &AppError{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Code: code, Message: message}
}

// BadRequest returns a 400 validation error, used for malformed path parameters.
func BadRequest(code int, message string) *AppError {
	return &AppError{Kind: KindValidation, Status: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized returns a 401 error.
func Unauthorized(code int, message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Code: code, Message: message}
}

// Forbidden returns a 403 error for ownership violations.
func Forbidden(code int, message string) *AppError {
	return &AppError{Kind: KindForbidden, Status: http.StatusForbidden, Code: code, Message: message}
}

// NotFound returns a 404 error for a missing resource.
func NotFound(code int, message string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Code: code, Message: message}
}

// NotFoundRoute returns a 404 error for requests no route matched.
func NotFoundRoute(path string) *AppError {
	return &AppError{Kind: KindNotFoundRoute, Status: http.StatusNotFound, Code: 40400, Message: "Not Found - " + path}
}

// PayloadTooLarge returns a 413 error for oversized uploads.
func PayloadTooLarge(code int, message string) *AppError {
	return &AppError{Kind: KindPayloadTooLarge, Status: http.StatusRequestEntityTooLarge, Code: code, Message: message}
}

// Storage wraps a filesystem or object store failure.
func Storage(code int, message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Status: http.StatusInternalServerError, Code: code, Message: message, Err: err}
}

// Unhandled wraps an unexpected failure.
func Unhandled(code int, message string, err error) *AppError {
	return &AppError{Kind: KindUnhandled, Status: http.StatusInternalServerError, Code: code, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnhandled when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnhandled
}
