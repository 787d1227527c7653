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

// Is matches domain errors by code and message so wrapped copies still
// compare equal to the sentinel they were derived from.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingRequiredField     = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidIndexingJobStatus = NewDomainError(ErrCodeValidation, "invalid indexing job status")
	ErrUnsupportedDocument      = NewDomainError(ErrCodeValidation, "unsupported document type")
	ErrEmptyDocument            = NewDomainError(ErrCodeValidation, "no text could be extracted from document")
)

// Not found errors
var (
	ErrDocumentNotFound    = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIndexingJobNotFound = NewDomainError(ErrCodeNotFound, "indexing job not found")
	ErrNoIndexedChunks     = NewDomainError(ErrCodeNotFound, "document has no indexed chunks")
)

// Already exists errors
var (
	ErrCacheEntryExists = NewDomainError(ErrCodeAlreadyExists, "cache entry already exists")
)

// Operation errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrInsightGeneration    = NewDomainError(ErrCodeInternalError, "insight generation failed")
	ErrNotConfigured        = NewDomainError(ErrCodeUnavailable, "subsystem not configured")
)
