package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocqaError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping with DocqaError
	de := New(ErrCodeFilePermission, "cannot read manual.pdf", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, de)
	assert.Equal(t, originalErr, errors.Unwrap(de))
	assert.True(t, errors.Is(de, originalErr))
}

func TestDocqaError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "alpha out of range",
			expected: "[ERR_102_CONFIG_INVALID] alpha out of range",
		},
		{
			name:     "query error",
			code:     ErrCodeInvalidQuery,
			message:  "k_final must not exceed k_base",
			expected: "[ERR_403_INVALID_QUERY] k_final must not exceed k_base",
		},
		{
			name:     "index error",
			code:     ErrCodeIndexCorrupt,
			message:  "bad magic",
			expected: "[ERR_502_INDEX_CORRUPT] bad magic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestDocqaError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, "a.pdf not found", nil)
	err2 := New(ErrCodeFileNotFound, "b.pdf not found", nil)
	err3 := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestHasCode_FindsCodeThroughWrapping(t *testing.T) {
	// Given: a DocqaError wrapped by fmt.Errorf
	inner := New(ErrCodeReindexLocked, "another reindex holds the lock", nil)
	outer := fmt.Errorf("reindex: %w", inner)

	// Then: code lookups see through the wrapper
	assert.True(t, HasCode(outer, ErrCodeReindexLocked))
	assert.False(t, HasCode(outer, ErrCodeIndexCorrupt))
	assert.Equal(t, ErrCodeReindexLocked, GetCode(outer))
	assert.Equal(t, CategoryIndex, GetCategory(outer))
	assert.True(t, IsRetryable(outer))
}

func TestDocqaError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeInvalidFilename, "invalid filename", nil).
		WithDetail("filename", "../etc/passwd").
		WithSuggestion("Upload a plain .pdf file name")

	assert.Equal(t, "../etc/passwd", err.Details["filename"])
	assert.Equal(t, "Upload a plain .pdf file name", err.Suggestion)
}

func TestDocqaError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeWriteFailed, CategoryIO},
		{ErrCodeEmbedderUnavailable, CategoryEmbedding},
		{ErrCodeEmbeddingFailed, CategoryEmbedding},
		{ErrCodeInvalidQuery, CategoryValidation},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeIndexNotFound, CategoryIndex},
		{ErrCodeReindexLocked, CategoryIndex},
		{ErrCodeInternal, CategoryInternal},
		{"bogus", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestDocqaError_SeverityAndRetryable(t *testing.T) {
	tests := []struct {
		code          string
		wantSeverity  Severity
		wantRetryable bool
	}{
		{ErrCodeIndexCorrupt, SeverityFatal, false},
		{ErrCodeIndexInconsistent, SeverityFatal, false},
		{ErrCodeEmbedderUnavailable, SeverityWarning, true},
		{ErrCodeEmbeddingFailed, SeverityWarning, true},
		{ErrCodeReindexLocked, SeverityWarning, true},
		{ErrCodeInvalidQuery, SeverityError, false},
		{ErrCodeFileNotFound, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWrap_CreatesDocqaErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	de := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, de)
	assert.Equal(t, ErrCodeInternal, de.Code)
	assert.Equal(t, "something went wrong", de.Message)
	assert.Equal(t, originalErr, de.Cause)
}

func TestHelpers_AssignCategories(t *testing.T) {
	assert.Equal(t, CategoryConfig, ConfigError("bad yaml", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("empty", nil).Category)
	assert.Equal(t, CategoryInternal, InternalError("boom", nil).Category)
	assert.Equal(t, "[ERR_403_INVALID_QUERY] alpha=2", Newf(ErrCodeInvalidQuery, "alpha=%g", 2.0).Error())
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeIndexCorrupt, "corrupt", nil)))
	assert.False(t, IsFatal(New(ErrCodeFileNotFound, "missing", nil)))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}
