package errors

import (
	stderrors "errors"
	"fmt"
)

// ClicrError is the structured error type for clicr.
// It carries context for error handling, logging, and user presentation.
type ClicrError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, API, etc.).
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
func (e *ClicrError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ClicrError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with ClicrError.
func (e *ClicrError) Is(target error) bool {
	if t, ok := target.(*ClicrError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *ClicrError) WithDetail(key, value string) *ClicrError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *ClicrError) WithSuggestion(suggestion string) *ClicrError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ClicrError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string) *ClicrError {
	return &ClicrError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Retryable: isRetryableCode(code),
	}
}

// Wrap attaches a code and message to an existing error, keeping it in
// the chain for errors.Is and errors.Unwrap.
func Wrap(err error, code string, message string) *ClicrError {
	if err == nil {
		return nil
	}
	ce := New(code, message)
	ce.Cause = err
	return ce
}

// IsRetryable checks if an error is retryable. The chain is walked so
// a wrapped ClicrError keeps its retryable flag.
func IsRetryable(err error) bool {
	var ce *ClicrError
	if stderrors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var ce *ClicrError
	if stderrors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a ClicrError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *ClicrError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a ClicrError anywhere in the chain.
// Returns empty string if there is none.
func GetCategory(err error) Category {
	var ce *ClicrError
	if stderrors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
