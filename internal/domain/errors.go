package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
	ErrCodeInputTooLarge     = "INPUT_TOO_LARGE"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
	ErrCodeTransient         = "TRANSIENT"
)

// Validation errors
var (
	ErrInvalidMemoryKind    = NewDomainError(ErrCodeValidation, "invalid memory kind")
	ErrInvalidMessageRole   = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrInvalidImportance    = NewDomainError(ErrCodeValidation, "importance must be in [0,1]")
	ErrInvalidDecayRate     = NewDomainError(ErrCodeValidation, "decay rate must be in [0,1]")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text cannot be empty")
)

// Input-bound errors
var (
	ErrInputTooLarge     = NewDomainError(ErrCodeInputTooLarge, "input text exceeds maximum length")
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding dimensionality does not match store")
)

// Not found errors
var (
	ErrApplicationNotFound   = NewDomainError(ErrCodeNotFound, "application not found")
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrEntryNotFound         = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrMemoryNotFound        = NewDomainError(ErrCodeNotFound, "memory not found")
	ErrConversationNotFound  = NewDomainError(ErrCodeNotFound, "conversation not found")
)

// Authorization errors
var (
	ErrUnauthorized    = NewDomainError(ErrCodeUnauthorized, "caller identity required")
	ErrCrossTenantRead = NewDomainError(ErrCodeForbidden, "caller does not own the requested record")
	ErrInvalidToken    = NewDomainError(ErrCodeUnauthorized, "invalid access token")
)

// Deadline and availability errors
var (
	ErrAssemblyDeadline = NewDomainError(ErrCodeDeadlineExceeded, "context assembly deadline exceeded")
	ErrStoreUnavailable = NewDomainError(ErrCodeTransient, "backing store unavailable, retry with backoff")
)
