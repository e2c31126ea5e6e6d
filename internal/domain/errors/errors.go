package errors

import (
	"net/http"

	"aspen/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types covering the provisioning failure taxonomy.
var (
	// Precondition failures: surfaced to the caller, never retried.
	ErrNoCertificate = NewBaseError(
		http.StatusPreconditionFailed,
		"NO_DEVELOPMENT_CERTIFICATE",
		"no usable development certificate for this account",
		"",
	)

	ErrProjectNotFound = NewBaseError(
		http.StatusNotFound,
		"PROJECT_NOT_FOUND",
		"project is not provisioned",
		"",
	)

	ErrInvalidToken = NewBaseError(
		http.StatusBadRequest,
		"INVALID_ENROLLMENT_TOKEN",
		"enrollment token is invalid or expired",
		"",
	)

	ErrTokenExhausted = NewBaseError(
		http.StatusInternalServerError,
		"TOKEN_GENERATION_EXHAUSTED",
		"could not allocate an enrollment token",
		"",
	)

	// Remote validation failure: aborts the current account attempt and
	// triggers allocator fallback.
	ErrRemoteValidation = NewBaseError(
		http.StatusBadGateway,
		"REMOTE_VALIDATION_FAILED",
		"portal rejected the requested mutation",
		"",
	)

	// Capacity exhaustion: a hard limit, surfaced directly.
	ErrCapacityExhausted = NewBaseError(
		http.StatusConflict,
		"CAPACITY_EXHAUSTED",
		"no account with free device slots",
		"",
	)

	// Transcript parse failure: always a structured result, never a panic.
	ErrCaptureParse = NewBaseError(
		http.StatusBadRequest,
		"CAPTURE_PARSE_FAILED",
		"could not extract a session from the capture",
		"",
	)

	ErrInvalidSession = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_SESSION",
		"captured session is not valid",
		"",
	)

	ErrWaitTimeout = NewBaseError(
		http.StatusGatewayTimeout,
		"WAIT_TIMEOUT",
		"no security code arrived before the deadline",
		"",
	)

	ErrAccountNotFound = NewBaseError(
		http.StatusNotFound,
		"ACCOUNT_NOT_FOUND",
		"account is not registered",
		"",
	)

	ErrEnrollmentNotFound = NewBaseError(
		http.StatusNotFound,
		"ENROLLMENT_NOT_FOUND",
		"enrollment token has no record",
		"",
	)

	ErrProfileNotFound = NewBaseError(
		http.StatusNotFound,
		"PROFILE_NOT_FOUND",
		"no provisioning profile for this enrollment",
		"",
	)

	ErrArtifactNotFound = NewBaseError(
		http.StatusNotFound,
		"ARTIFACT_NOT_FOUND",
		"requested artifact is not available",
		"",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"request validation failed",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
