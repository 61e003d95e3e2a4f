package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func asRetrievalError(err error) *RetrievalError {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForCLI renders err for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	re := asRetrievalError(err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", re.Message)
	if re.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", re.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", re.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON renders err for machine consumers (search --format json).
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	re := asRetrievalError(err)

	je := jsonError{
		Code:       re.Code,
		Message:    re.Message,
		Category:   string(re.Category),
		Severity:   string(re.Severity),
		Details:    re.Details,
		Suggestion: re.Suggestion,
		Retryable:  re.Retryable,
	}
	if re.Cause != nil {
		je.Cause = re.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs flattens err into slog key-value pairs.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	var re *RetrievalError
	if !errors.As(err, &re) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", re.Code,
		"error", re.Message,
		"category", string(re.Category),
		"severity", string(re.Severity),
	}
	if re.Cause != nil {
		attrs = append(attrs, "cause", re.Cause.Error())
	}
	for k, v := range re.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
