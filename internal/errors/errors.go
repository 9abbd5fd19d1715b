package errors

import (
	stderrors "errors"
	"fmt"
)

// SongbookError is the structured error type for songbook.
// It carries enough context for logging, CLI output, and outcome classification.
type SongbookError struct {
	// Code is the unique error code (e.g., "ERR_207_RECORD_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SongbookError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SongbookError) Unwrap() error {
	return e.Cause
}

// Is matches by code so sentinel values work with errors.Is.
func (e *SongbookError) Is(target error) bool {
	if t, ok := target.(*SongbookError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SongbookError) WithDetail(key, value string) *SongbookError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SongbookError) WithSuggestion(suggestion string) *SongbookError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SongbookError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SongbookError {
	return &SongbookError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SongbookError from an existing error.
func Wrap(code string, err error) *SongbookError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SongbookError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a file-related error.
func IOError(message string, cause error) *SongbookError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SongbookError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SongbookError {
	return New(ErrCodeInternal, message, cause)
}

// NotFound reports a record that does not exist in the store.
func NotFound(id int64) *SongbookError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("song %d not found", id), nil).
		WithDetail("id", fmt.Sprint(id))
}

// RecordCorrupt reports a stored record that cannot be turned into a song.
func RecordCorrupt(id int64, cause error) *SongbookError {
	msg := fmt.Sprintf("song %d is corrupt", id)
	if cause != nil {
		msg = fmt.Sprintf("song %d is corrupt: %v", id, cause)
	}
	return New(ErrCodeRecordCorrupt, msg, cause).WithDetail("id", fmt.Sprint(id))
}

// StoreUnavailable reports a store-level failure unrelated to any single record.
func StoreUnavailable(message string, cause error) *SongbookError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// IsRetryable checks if any SongbookError in the chain is retryable.
func IsRetryable(err error) bool {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the code of the first SongbookError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category of the first SongbookError in the chain.
func GetCategory(err error) Category {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Category
	}
	return ""
}

// HasCode reports whether any SongbookError in the chain carries code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &SongbookError{Code: code})
}
