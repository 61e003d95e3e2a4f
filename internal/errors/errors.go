package errors

import (
	"errors"
	"fmt"
)

// RetrievalError is the structured error used across amanrag.
type RetrievalError struct {
	// Code is the unique error code (e.g. "ERR_102_CONFIG_INVALID").
	Code string

	Message  string
	Category Category
	Severity Severity

	// Details carries extra context (source name, config field, path).
	Details map[string]string

	Cause error

	// Retryable is a hint for collaborators; the retrieval core never retries.
	Retryable bool

	// Suggestion is an actionable hint shown by the CLI.
	Suggestion string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// Is matches another *RetrievalError by code so sentinel-style comparisons
// work through errors.Is.
func (e *RetrievalError) Is(target error) bool {
	var t *RetrievalError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *RetrievalError) WithDetail(key, value string) *RetrievalError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the user-facing hint.
func (e *RetrievalError) WithSuggestion(suggestion string) *RetrievalError {
	e.Suggestion = suggestion
	return e
}

// New creates a RetrievalError. Category, severity and the retryable hint
// are derived from the code.
func New(code string, message string, cause error) *RetrievalError {
	return &RetrievalError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap turns err into a RetrievalError carrying err's message.
func Wrap(code string, err error) *RetrievalError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports an invalid configuration. Only returned at construction.
func ConfigError(message string, cause error) *RetrievalError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// CorpusError reports a corpus that cannot be opened or read.
func CorpusError(message string, cause error) *RetrievalError {
	return New(ErrCodeCorpusNotFound, message, cause)
}

// SourceUnavailable reports a scorer that errored for one request.
func SourceUnavailable(source string, cause error) *RetrievalError {
	return New(ErrCodeSourceUnavailable, source+" source unavailable", cause).
		WithDetail("source", source)
}

// SourceTimeout reports a scorer that exceeded its per-source deadline.
func SourceTimeout(source string, cause error) *RetrievalError {
	return New(ErrCodeSourceTimeout, source+" source timed out", cause).
		WithDetail("source", source)
}

// ValidationError reports bad caller input.
func ValidationError(message string, cause error) *RetrievalError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError reports an unexpected failure.
func InternalError(message string, cause error) *RetrievalError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err carries the retryable hint.
func IsRetryable(err error) bool {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first RetrievalError in err's chain.
func GetCode(err error) string {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetCategory returns the category of the first RetrievalError in err's chain.
func GetCategory(err error) Category {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}
