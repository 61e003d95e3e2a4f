// Package errors provides structured error handling for amanrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Corpus and file errors
//   - 3XX: Retrieval source errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category groups error codes by the hundreds digit.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryCorpus     Category = "CORPUS"
	CategorySource     Category = "SOURCE"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts startup or the current command.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation.
	SeverityError Severity = "ERROR"
	// SeverityWarning marks degraded operation that continues.
	SeverityWarning Severity = "WARNING"
)

const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigParse    = "ERR_103_CONFIG_PARSE"

	// Corpus errors (200-299)
	ErrCodeCorpusNotFound = "ERR_201_CORPUS_NOT_FOUND"
	ErrCodeCorpusCorrupt  = "ERR_202_CORPUS_CORRUPT"
	ErrCodeCorpusLocked   = "ERR_203_CORPUS_LOCKED"
	ErrCodeEmptyCorpus    = "ERR_204_EMPTY_CORPUS"

	// Source errors (300-399)
	ErrCodeSourceTimeout     = "ERR_301_SOURCE_TIMEOUT"
	ErrCodeSourceUnavailable = "ERR_302_SOURCE_UNAVAILABLE"
	ErrCodeEmbedderFailed    = "ERR_303_EMBEDDER_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_403_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeIndexFailed      = "ERR_502_INDEX_FAILED"
	ErrCodeAllSourcesFailed = "ERR_503_ALL_SOURCES_FAILED"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryCorpus
	case '3':
		return CategorySource
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeConfigParse, ErrCodeCorpusCorrupt:
		return SeverityFatal
	}
	if categoryFromCode(code) == CategorySource || code == ErrCodeEmptyCorpus || code == ErrCodeAllSourcesFailed {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports codes a collaborator may retry at its own boundary.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeSourceTimeout, ErrCodeSourceUnavailable, ErrCodeEmbedderFailed, ErrCodeCorpusLocked:
		return true
	default:
		return false
	}
}
