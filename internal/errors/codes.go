package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies failures crossing a service boundary.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates malformed or out-of-range input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthenticated indicates a missing or invalid credential.
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	// ErrCodePermissionDenied indicates a valid identity without ownership.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	// ErrCodeNotFound indicates the referenced resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimitExceeded indicates the caller exceeded the request budget.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeUpstreamUnavailable indicates a dependent capability is down.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodePersistenceFailure indicates a write to the system of record failed.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	// ErrCodeInternal indicates an unclassified server-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ServiceError is a structured error carrying a stable code and a
// user-safe message. Internal details live only in Cause.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeUnauthenticated, Message: msg}
}

// PermissionDenied creates a permission denied error.
func PermissionDenied(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodePermissionDenied, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// UpstreamUnavailable creates an upstream unavailable error.
func UpstreamUnavailable(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeUpstreamUnavailable, Message: msg, Cause: cause}
}

// PersistenceFailure creates a persistence failure error.
func PersistenceFailure(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodePersistenceFailure, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err carries the given code, unwrapping as needed.
func IsCode(err error, code ErrorCode) bool {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the code from any error, falling back to
// defaultCode for errors that are not ServiceErrors.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.Code
	}
	return defaultCode
}
