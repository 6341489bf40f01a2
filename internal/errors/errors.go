package errors

import (
	stderrors "errors"
	"fmt"
)

// DocqaError is the structured error type for docqa.
// It carries enough context for logging, HTTP status mapping and CLI hints.
type DocqaError struct {
	// Code is the unique error code (e.g., "ERR_403_INVALID_QUERY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category derived from the code.
	Category Category

	// Severity is the error severity level.
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
func (e *DocqaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocqaError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DocqaError with the same code.
func (e *DocqaError) Is(target error) bool {
	if t, ok := target.(*DocqaError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocqaError) WithDetail(key, value string) *DocqaError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocqaError) WithSuggestion(suggestion string) *DocqaError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocqaError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocqaError {
	return &DocqaError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code string, format string, args ...any) *DocqaError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a DocqaError from an existing error.
// The error's message becomes the DocqaError message.
func Wrap(code string, err error) *DocqaError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocqaError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DocqaError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocqaError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first DocqaError in err's chain.
func As(err error) (*DocqaError, bool) {
	var de *DocqaError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any DocqaError in err's chain has the given code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &DocqaError{Code: code})
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if de, ok := As(err); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if de, ok := As(err); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DocqaError.
// Returns empty string if err carries none.
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocqaError.
// Returns empty string if err carries none.
func GetCategory(err error) Category {
	if de, ok := As(err); ok {
		return de.Category
	}
	return ""
}
