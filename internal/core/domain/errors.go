package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	ErrCodeConfigInvalid     ErrorCode = "config_invalid"
	ErrCodeIdPNotFound       ErrorCode = "idp_not_found"
	ErrCodeCorrelationFailed ErrorCode = "correlation_failed"
	ErrCodeRetrievalFailed   ErrorCode = "retrieval_failed"
	ErrCodeServiceError      ErrorCode = "service_error"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// AppError is a structured error with code, message, and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for errors.Is checks across package boundaries.
var (
	// ErrIdPNotFound is returned when an entity ID is not present in any
	// provider source.
	ErrIdPNotFound = errors.New("identity provider not found")

	// ErrRequestNotFound is returned when consuming a pending request that
	// was never inserted or has already been evicted.
	ErrRequestNotFound = errors.New("pending request not found")

	// ErrRequestReplayed is returned when consuming a pending request that
	// has already been consumed. Callers should treat this as a potential
	// replayed or forged response, not an ordinary miss.
	ErrRequestReplayed = errors.New("pending request already consumed")
)

// ConfigError creates a terminal configuration error for the given entity ID.
// Configuration errors are non-retryable: they reflect bad trust
// configuration, not a transient fault.
func ConfigError(entityID, message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("identity provider %q: %s", entityID, message),
	}
}

// IdPNotFoundError creates an IdP not found error.
func IdPNotFoundError(entityID string) *AppError {
	return &AppError{
		Code:    ErrCodeIdPNotFound,
		Message: fmt.Sprintf("the identity provider %q was not found", entityID),
		Cause:   ErrIdPNotFound,
	}
}

// RetrievalError wraps a failure to fetch partner metadata. It is scoped to
// the provider or federation being loaded, never the whole registry.
func RetrievalError(location string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeRetrievalFailed,
		Message: fmt.Sprintf("failed to retrieve metadata from %q", location),
		Cause:   cause,
	}
}

// CorrelationError wraps a pending-request consumption failure so callers
// can distinguish replay from a plain miss via errors.Is.
func CorrelationError(requestID string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeCorrelationFailed,
		Message: fmt.Sprintf("request %q: %v", requestID, cause),
		Cause:   cause,
	}
}

// ServiceError creates an internal service error.
func ServiceError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeServiceError, Message: message, Cause: cause}
}
