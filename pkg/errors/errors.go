package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Wrap returns a copy of the error carrying err as its cause. Predefined
// errors stay untouched.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Print session errors. The first five are fatal to a session and are the
// only errors allowed to change session state. LOG_WRITE_FAILED and
// DETECTOR_FAILED are reported out of band and never alter the outcome.
var (
	ErrDescriptorFetch       = New("DESCRIPTOR_FETCH_FAILED", http.StatusBadGateway, "failed to fetch document descriptor")
	ErrCapabilityUnavailable = New("CAPABILITY_UNAVAILABLE", http.StatusPreconditionFailed, "no print device detected")
	ErrSurfaceMount          = New("SURFACE_MOUNT_FAILED", http.StatusInternalServerError, "document failed to load")
	ErrCompletionTimeout     = New("COMPLETION_TIMEOUT", http.StatusGatewayTimeout, "print completion signal not received in time")
	ErrSessionCancelled      = New("SESSION_CANCELLED", http.StatusConflict, "print session cancelled")
	ErrLogWrite              = New("LOG_WRITE_FAILED", http.StatusInternalServerError, "failed to record print event")
	ErrDetector              = New("DETECTOR_FAILED", http.StatusInternalServerError, "deterrence detector failed")
	ErrNoSession             = New("NO_SESSION", http.StatusNotFound, "no active print session")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
