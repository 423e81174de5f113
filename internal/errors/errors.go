package errors

import (
	"context"
	"errors"
	"fmt"
)

// EvidenceError is the structured error type for evidencemcp.
type EvidenceError struct {
	// Code is the unique error code (e.g., "ERR_301_SOURCE_TIMEOUT").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *EvidenceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EvidenceError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, ErrDimensionMismatch) works
// for any mismatch regardless of message.
func (e *EvidenceError) Is(target error) bool {
	if t, ok := target.(*EvidenceError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *EvidenceError) WithDetail(key, value string) *EvidenceError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *EvidenceError) WithSuggestion(suggestion string) *EvidenceError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EvidenceError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EvidenceError {
	return &EvidenceError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EvidenceError from an existing error.
func Wrap(code string, err error) *EvidenceError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel values for errors.Is comparisons.
var (
	ErrDimensionMismatch = &EvidenceError{Code: ErrCodeDimensionMismatch}
	ErrQueryEmpty        = &EvidenceError{Code: ErrCodeQueryEmpty}
	ErrCacheUnavailable  = &EvidenceError{Code: ErrCodeCacheUnavailable}
	ErrEmbeddingFailed   = &EvidenceError{Code: ErrCodeEmbeddingFailed}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *EvidenceError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// SourceError creates an error for a failing evidence source.
// Timeouts get their own code so callers can tell them apart in logs.
func SourceError(source string, cause error) *EvidenceError {
	code := ErrCodeSourceUnavailable
	if errors.Is(cause, context.DeadlineExceeded) {
		code = ErrCodeSourceTimeout
	}
	return New(code, fmt.Sprintf("source %s failed", source), cause).WithDetail("source", source)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *EvidenceError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable checks if an error is retryable anywhere in its chain.
func IsRetryable(err error) bool {
	var ee *EvidenceError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ee *EvidenceError
	if errors.As(err, &ee) {
		return ee.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an EvidenceError.
// Returns empty string if not an EvidenceError.
func GetCode(err error) string {
	var ee *EvidenceError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// GetCategory extracts the category from an EvidenceError.
func GetCategory(err error) Category {
	var ee *EvidenceError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ""
}
