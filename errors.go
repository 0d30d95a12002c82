package samltrust

import (
	"github.com/philiph/saml-trust/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type AppError = domain.AppError

// Re-export error code constants
const (
	ErrCodeConfigInvalid     = domain.ErrCodeConfigInvalid
	ErrCodeIdPNotFound       = domain.ErrCodeIdPNotFound
	ErrCodeCorrelationFailed = domain.ErrCodeCorrelationFailed
	ErrCodeRetrievalFailed   = domain.ErrCodeRetrievalFailed
	ErrCodeServiceError      = domain.ErrCodeServiceError
)

// Re-export sentinel errors
var (
	ErrIdPNotFound     = domain.ErrIdPNotFound
	ErrRequestNotFound = domain.ErrRequestNotFound
	ErrRequestReplayed = domain.ErrRequestReplayed
)

// Re-export error constructors
var (
	ConfigError      = domain.ConfigError
	IdPNotFoundError = domain.IdPNotFoundError
	RetrievalError   = domain.RetrievalError
	CorrelationError = domain.CorrelationError
	ServiceError     = domain.ServiceError
)
