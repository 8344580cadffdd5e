// Package errors provides structured error handling for netsift.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (snapshot, lock file)
//   - 3XX: Upstream errors (embedding service, vector store)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates snapshot and lock file I/O errors.
	CategoryIO Category = "IO"
	// CategoryUpstream indicates embedding service or vector store errors.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the document (or query) cannot proceed.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but siblings can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeSnapshotIO      = "ERR_201_SNAPSHOT_IO"
	ErrCodeSnapshotCorrupt = "ERR_202_SNAPSHOT_CORRUPT"
	ErrCodeLockTimeout     = "ERR_203_LOCK_TIMEOUT"

	// Upstream errors (300-399)
	ErrCodeEmbedUnavailable  = "ERR_301_EMBED_UNAVAILABLE"
	ErrCodeEmbedFailed       = "ERR_302_EMBED_FAILED"
	ErrCodeVectorUnavailable = "ERR_303_VECTOR_UNAVAILABLE"
	ErrCodeVectorUpsert      = "ERR_304_VECTOR_UPSERT"
	ErrCodeVectorSearch      = "ERR_305_VECTOR_SEARCH"

	// Validation errors (400-499)
	ErrCodeEmptyInput        = "ERR_401_EMPTY_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidURL        = "ERR_404_INVALID_URL"
	ErrCodeInvalidMode       = "ERR_405_INVALID_MODE"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeKeywordUpdate = "ERR_502_KEYWORD_UPDATE"
	ErrCodeSearchFailed  = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDimensionMismatch, ErrCodeEmbedFailed, ErrCodeVectorUpsert:
		// Fatal for the document being processed: vector-side integrity
		// cannot be guaranteed past this point.
		return SeverityFatal
	case ErrCodeLockTimeout, ErrCodeSnapshotIO, ErrCodeSnapshotCorrupt, ErrCodeKeywordUpdate:
		// Keyword-side failures degrade the document, never kill it.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedUnavailable, ErrCodeVectorUnavailable:
		return true
	default:
		return false
	}
}
