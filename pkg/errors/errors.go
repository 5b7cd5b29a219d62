// Package errors defines custom error types and error handling utilities for the PD-MEWS risk service.
// Every error that crosses a layer boundary carries a stable code which the HTTP layer maps to a status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, machine-readable class of an error.
type ErrorCode string

const (
	// CodeNotFound marks an unknown user, exposure, assessment or identifier.
	CodeNotFound ErrorCode = "not_found"
	// CodeInvalidRequest marks malformed input supplied by a caller.
	CodeInvalidRequest ErrorCode = "invalid_request"
	// CodeConflict marks a uniqueness violation.
	CodeConflict ErrorCode = "conflict"
	// CodeConfiguration marks a missing or rejected external-service credential.
	CodeConfiguration ErrorCode = "configuration_error"
	// CodeTransient marks a failure of an external dependency that may succeed on retry.
	CodeTransient ErrorCode = "transient_error"
	// CodeRateLimited marks a caller that exceeded its request budget.
	CodeRateLimited ErrorCode = "rate_limited"
	// CodeIntegrity marks a failure that voids the forensic guarantee.
	CodeIntegrity ErrorCode = "integrity_error"
	// CodeInternal marks any other failure.
	CodeInternal ErrorCode = "internal_error"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the error class
	Code() ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause returns a copy of the error carrying cause
	WithCause(cause error) AppError

	// WithMetadata returns a copy of the error with an additional metadata entry
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// baseError is the internal implementation of AppError
type baseError struct {
	code       ErrorCode
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error class
func (e *baseError) Code() ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Unwrap returns the underlying cause error
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause returns a copy of the error carrying cause
func (e *baseError) WithCause(cause error) AppError {
	clone := e.clone()
	clone.cause = cause
	return clone
}

// WithMetadata returns a copy of the error with an additional metadata entry
func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	clone := e.clone()
	clone.metadata[key] = value
	return clone
}

// Metadata returns all metadata
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

func (e *baseError) clone() *baseError {
	md := make(map[string]interface{}, len(e.metadata)+1)
	for k, v := range e.metadata {
		md[k] = v
	}
	return &baseError{
		code:       e.code,
		httpStatus: e.httpStatus,
		message:    e.message,
		cause:      e.cause,
		metadata:   md,
	}
}

// ================================================================================
// Error Constructors
// ================================================================================

// NewError creates a new AppError with the specified parameters
func NewError(code ErrorCode, httpStatus int, message string) AppError {
	return &baseError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
		metadata:   make(map[string]interface{}),
	}
}

// ErrNotFound creates a not_found error for the named resource.
func ErrNotFound(resource, id string) AppError {
	return NewError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource)).
		WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) AppError {
	return NewError(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) AppError {
	return NewError(CodeConflict, http.StatusConflict, message)
}

// ErrConfiguration creates a configuration error
func ErrConfiguration(message string) AppError {
	return NewError(CodeConfiguration, http.StatusInternalServerError, message)
}

// ErrTransient creates a transient external-dependency error
func ErrTransient(message string) AppError {
	return NewError(CodeTransient, http.StatusServiceUnavailable, message)
}

// ErrRateLimited creates a rate_limited error
func ErrRateLimited(message string) AppError {
	return NewError(CodeRateLimited, http.StatusTooManyRequests, message)
}

// ErrIntegrity creates an integrity error
func ErrIntegrity(message string) AppError {
	return NewError(CodeIntegrity, http.StatusInternalServerError, message)
}

// ErrInternal creates an internal error
func ErrInternal(message string) AppError {
	return NewError(CodeInternal, http.StatusInternalServerError, message)
}

// Wrap wraps err into an AppError of the given code. An AppError already in the chain keeps its code.
func Wrap(err error, code ErrorCode, message string) AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	status := http.StatusInternalServerError
	switch code {
	case CodeNotFound:
		status = http.StatusNotFound
	case CodeInvalidRequest:
		status = http.StatusBadRequest
	case CodeConflict:
		status = http.StatusConflict
	case CodeTransient:
		status = http.StatusServiceUnavailable
	}
	return NewError(code, status, message).WithCause(err)
}

// ================================================================================
// Error Inspection
// ================================================================================

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code() == code
}

// IsNotFound reports whether err is a not_found error
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsTransient reports whether err is a transient external-dependency error
func IsTransient(err error) bool {
	return HasCode(err, CodeTransient)
}

// Is, As and Join re-export the standard helpers so callers need a single errors import.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join
	New  = stderrors.New
)
