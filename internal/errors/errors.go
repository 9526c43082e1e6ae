package errors

import (
	"errors"
	"fmt"
)

// FusionError is the structured error type for SpecFusion.
// It carries enough context for logging, HTTP mapping, and sync-run
// accounting.
type FusionError struct {
	// Code is the unique error code (e.g., "ERR_401_UPSTREAM_RATE_LIMIT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Validation, Upstream, Fatal, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried with backoff.
	Retryable bool

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *FusionError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FusionError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *FusionError) Is(target error) bool {
	if t, ok := target.(*FusionError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FusionError) WithDetail(key, value string) *FusionError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
func (e *FusionError) WithSuggestion(suggestion string) *FusionError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FusionError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FusionError {
	return &FusionError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FusionError from an existing error.
func Wrap(code string, err error) *FusionError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *FusionError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates a not-found error for a document id.
func NotFoundError(message string, cause error) *FusionError {
	return New(ErrCodeDocNotFound, message, cause)
}

// UpstreamError creates an upstream rate-limit/anti-bot error.
func UpstreamError(message string, cause error) *FusionError {
	return New(ErrCodeUpstreamRateLimit, message, cause)
}

// QualityGateError creates a quality-gate rejection.
func QualityGateError(message string) *FusionError {
	return New(ErrCodeQualityGate, message, nil).
		WithSuggestion("inspect the source catalog manually before allowing deletions")
}

// FatalError creates an unrecoverable error.
func FatalError(message string, cause error) *FusionError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var fe *FusionError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error must abort the current run.
func IsFatal(err error) bool {
	var fe *FusionError
	if errors.As(err, &fe) {
		return fe.Severity == SeverityFatal
	}
	return false
}

// CategoryOf returns the category of an error, or CategoryFatal for
// unclassified errors.
func CategoryOf(err error) Category {
	var fe *FusionError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return CategoryFatal
}
