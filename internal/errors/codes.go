// Package errors provides structured error handling for evidencemcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (corpus files, local stores)
//   - 3XX: Evidence source errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors (embedding, ranking)
//   - 6XX: Cache errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and local store errors.
	CategoryIO Category = "IO"
	// CategorySource indicates a failing upstream evidence source.
	CategorySource Category = "SOURCE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryCache indicates an unavailable or misbehaving cache backend.
	CategoryCache Category = "CACHE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeCorpusInvalid = "ERR_202_CORPUS_INVALID"
	ErrCodeStoreFailed   = "ERR_203_STORE_FAILED"

	// Source errors (300-399)
	ErrCodeSourceTimeout     = "ERR_301_SOURCE_TIMEOUT"
	ErrCodeSourceUnavailable = "ERR_302_SOURCE_UNAVAILABLE"
	ErrCodeSourceResponse    = "ERR_303_SOURCE_BAD_RESPONSE"
	ErrCodeSourceRateLimited = "ERR_304_SOURCE_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed   = "ERR_502_EMBEDDING_FAILED"
	ErrCodeRerankFailed      = "ERR_503_RERANK_FAILED"
	ErrCodeEnhancementFailed = "ERR_504_ENHANCEMENT_FAILED"

	// Cache errors (600-699)
	ErrCodeCacheUnavailable = "ERR_601_CACHE_UNAVAILABLE"
	ErrCodeCacheCorrupt     = "ERR_602_CACHE_CORRUPT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "301" from "ERR_301_SOURCE_TIMEOUT")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategorySource
	case '4':
		return CategoryValidation
	case '6':
		return CategoryCache
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid:
		return SeverityFatal
	}

	// Retryable and cache errors degrade the result, they never abort it
	if isRetryableCode(code) || categoryFromCode(code) == CategoryCache {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeSourceTimeout, ErrCodeSourceUnavailable, ErrCodeSourceRateLimited:
		return true
	default:
		return false
	}
}
