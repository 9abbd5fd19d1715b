package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongbookError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an original error
	cause := errors.New("disk I/O error")

	// When: wrapping it
	err := StoreUnavailable("commit failed", cause)

	// Then: the chain still reaches the cause
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestSongbookError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *SongbookError
		expected string
	}{
		{"config", New(ErrCodeConfigNotFound, "config file not found", nil), "[ERR_101_CONFIG_NOT_FOUND] config file not found"},
		{"not found", NotFound(42), "[ERR_207_RECORD_NOT_FOUND] song 42 not found"},
		{"corrupt", RecordCorrupt(7, nil), "[ERR_208_RECORD_CORRUPT] song 7 is corrupt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSongbookError_Is_MatchesByCode(t *testing.T) {
	assert.True(t, errors.Is(NotFound(1), NotFound(2)))
	assert.False(t, errors.Is(NotFound(1), RecordCorrupt(1, nil)))
}

func TestHasCode_FindsWrappedError(t *testing.T) {
	// Given: a not-found error wrapped by fmt
	err := fmt.Errorf("fetch: %w", NotFound(3))

	// Then: the code is visible through the chain
	assert.True(t, HasCode(err, ErrCodeRecordNotFound))
	assert.False(t, HasCode(err, ErrCodeStoreUnavailable))
	assert.Equal(t, ErrCodeRecordNotFound, GetCode(err))
	assert.Equal(t, CategoryStorage, GetCategory(err))
}

func TestNew_DerivesClassificationFromCode(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStoreUnavailable, CategoryStorage, SeverityWarning, true},
		{ErrCodeStoreLocked, CategoryStorage, SeverityWarning, true},
		{ErrCodeRecordCorrupt, CategoryStorage, SeverityWarning, false},
		{ErrCodeCorruptIndex, CategoryStorage, SeverityFatal, false},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityError, false},
		{ErrCodeIndexFailed, CategoryInternal, SeverityError, false},
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

func TestIsRetryable_And_IsFatal(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", StoreUnavailable("x", nil))))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "bad", nil)))
	assert.False(t, IsFatal(NotFound(1)))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	err := New(ErrCodeStoreLocked, "library is in use", nil).
		WithSuggestion("close the other songbook process")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: library is in use")
	assert.Contains(t, out, "Hint: close the other songbook process")
	assert.Contains(t, out, "Code: ERR_210_STORE_LOCKED")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	data, err := FormatJSON(RecordCorrupt(9, errors.New("bad json")))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeRecordCorrupt, decoded["code"])
	assert.Equal(t, "bad json", decoded["cause"])
	assert.Equal(t, map[string]any{"id": "9"}, decoded["details"])
}

func TestLogAttrs(t *testing.T) {
	assert.Nil(t, LogAttrs(nil))
	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))

	attrs := LogAttrs(NotFound(5))
	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeRecordNotFound)
	assert.Contains(t, attrs, "detail_id")
}
