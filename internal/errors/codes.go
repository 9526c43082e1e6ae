// Package errors provides structured error handling for SpecFusion.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: validation errors (bad requests, malformed payloads)
//   - 2XX: not-found errors
//   - 3XX: auth errors
//   - 4XX: upstream errors (rate limits, anti-bot challenges)
//   - 5XX: parse/format errors
//   - 6XX: integrity errors
//   - 7XX: quality-gate errors
//   - 9XX: fatal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryNotFound indicates lookups for entities that do not exist.
	CategoryNotFound Category = "NOT_FOUND"
	// CategoryAuth indicates authentication/authorization errors.
	CategoryAuth Category = "AUTH"
	// CategoryUpstream indicates rate limits and anti-bot challenges from
	// source platforms.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryParse indicates malformed upstream payloads or query syntax.
	CategoryParse Category = "PARSE"
	// CategoryIntegrity indicates inconsistent batch payloads.
	CategoryIntegrity Category = "INTEGRITY"
	// CategoryQuality indicates quality-gate rejections.
	CategoryQuality Category = "QUALITY"
	// CategoryFatal indicates unrecoverable errors (DB unreachable, schema
	// apply failed, login failed).
	CategoryFatal Category = "FATAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort the run.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Validation errors (100-199)
	ErrCodeMissingQuery   = "ERR_101_MISSING_QUERY"
	ErrCodeInvalidInput   = "ERR_102_INVALID_INPUT"
	ErrCodeInvalidDocType = "ERR_103_INVALID_DOC_TYPE"

	// Not-found errors (200-299)
	ErrCodeDocNotFound    = "ERR_201_DOC_NOT_FOUND"
	ErrCodeSourceNotFound = "ERR_202_SOURCE_NOT_FOUND"

	// Auth errors (300-399)
	ErrCodeUnauthorized = "ERR_301_UNAUTHORIZED"

	// Upstream errors (400-499)
	ErrCodeUpstreamRateLimit = "ERR_401_UPSTREAM_RATE_LIMIT"
	ErrCodeAntiBot           = "ERR_402_ANTI_BOT_CHALLENGE"
	ErrCodeCaptcha           = "ERR_403_CAPTCHA_REQUIRED"
	ErrCodeSessionExpired    = "ERR_404_SESSION_EXPIRED"

	// Parse errors (500-599)
	ErrCodeMatchSyntax  = "ERR_501_MATCH_SYNTAX"
	ErrCodeBadUpstream  = "ERR_502_BAD_UPSTREAM_PAYLOAD"
	ErrCodeBadSpec      = "ERR_503_BAD_OPENAPI_SPEC"

	// Integrity errors (600-699)
	ErrCodeBadBatch = "ERR_601_INCONSISTENT_BATCH"

	// Quality errors (700-799)
	ErrCodeQualityGate = "ERR_701_QUALITY_GATE_REJECTED"

	// Fatal errors (900-999)
	ErrCodeStoreUnavailable = "ERR_901_STORE_UNAVAILABLE"
	ErrCodeSchemaFailed     = "ERR_902_SCHEMA_APPLY_FAILED"
	ErrCodeLoginFailed      = "ERR_903_LOGIN_FAILED"
	ErrCodeAntiBotFatal     = "ERR_904_ANTI_BOT_EXHAUSTED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryFatal
	}
	switch code[4] {
	case '1':
		return CategoryValidation
	case '2':
		return CategoryNotFound
	case '3':
		return CategoryAuth
	case '4':
		return CategoryUpstream
	case '5':
		return CategoryParse
	case '6':
		return CategoryIntegrity
	case '7':
		return CategoryQuality
	default:
		return CategoryFatal
	}
}

// severityFromCode derives severity from error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryFatal, CategoryQuality:
		return SeverityFatal
	case CategoryParse:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the operation behind the code may be
// retried with backoff.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeUpstreamRateLimit, ErrCodeAntiBot, ErrCodeCaptcha, ErrCodeSessionExpired:
		return true
	}
	return false
}
