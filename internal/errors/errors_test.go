package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{ErrCodeSourceTimeout, CategorySource, SeverityWarning, true},
		{ErrCodeSourceResponse, CategorySource, SeverityError, false},
		{ErrCodeDimensionMismatch, CategoryValidation, SeverityError, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityError, false},
		{ErrCodeCacheUnavailable, CategoryCache, SeverityWarning, false},
		{"bad", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestEvidenceError_IsMatchesByCode(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "384 != 768", nil)
	wrapped := fmt.Errorf("rerank: %w", err)

	assert.True(t, errors.Is(wrapped, ErrDimensionMismatch))
	assert.False(t, errors.Is(wrapped, ErrQueryEmpty))
	assert.Equal(t, ErrCodeDimensionMismatch, GetCode(wrapped))
	assert.Equal(t, CategoryValidation, GetCategory(wrapped))
}

func TestEvidenceError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeCacheUnavailable, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[ERR_601_CACHE_UNAVAILABLE] connection refused", err.Error())
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestSourceError_ClassifiesTimeouts(t *testing.T) {
	timeout := SourceError("openalex", fmt.Errorf("get: %w", context.DeadlineExceeded))
	down := SourceError("openalex", errors.New("503"))

	assert.Equal(t, ErrCodeSourceTimeout, timeout.Code)
	assert.Equal(t, ErrCodeSourceUnavailable, down.Code)
	assert.Equal(t, "openalex", down.Details["source"])
	assert.True(t, IsRetryable(timeout))
	assert.False(t, IsFatal(timeout))
}

func TestFormatJSON(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query is empty", nil).WithSuggestion("provide a clinical question")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeQueryEmpty, got["code"])
	assert.Equal(t, "VALIDATION", got["category"])
	assert.Equal(t, "provide a clinical question", got["suggestion"])
}

func TestFormatForCLI(t *testing.T) {
	out := FormatForCLI(ConfigError("rrf_k must be positive", nil).WithSuggestion("set fusion.rrf_k"))

	assert.Contains(t, out, "Error: rrf_k must be positive")
	assert.Contains(t, out, "Hint: set fusion.rrf_k")
	assert.Contains(t, out, "Code: ERR_102_CONFIG_INVALID")
	assert.Empty(t, FormatForCLI(nil))
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(SourceError("trials", errors.New("boom")))

	assert.NotEmpty(t, attrs)
	assert.Len(t, LogAttrs(errors.New("plain")), 1)
	assert.Nil(t, LogAttrs(nil))
}
