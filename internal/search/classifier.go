package search

import (
	"regexp"
	"strings"
)

// Kind is the query class that decides the execution path.
type Kind int

const (
	// KindKeyword routes through the FTS index.
	KindKeyword Kind = iota
	// KindErrorCode routes through the error_codes table.
	KindErrorCode
	// KindAPIPath routes through a LIKE over api_path; no FTS is performed.
	KindAPIPath
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindErrorCode:
		return "error_code"
	case KindAPIPath:
		return "api_path"
	default:
		return "keyword"
	}
}

var (
	errCodeRe       = regexp.MustCompile(`(?i)^(?:errcode\s*)?\d+$`)
	errCodePrefixRe = regexp.MustCompile(`(?i)^errcode\s*`)
)

// Classify determines the query class for a trimmed query.
func Classify(q string) Kind {
	switch {
	case errCodeRe.MatchString(q):
		return KindErrorCode
	case strings.HasPrefix(q, "/"),
		strings.Contains(q, "/cgi-bin/"),
		strings.Contains(q, "/open-apis/"):
		return KindAPIPath
	default:
		return KindKeyword
	}
}

// StripErrCodePrefix removes an "errcode " prefix from an error-code query.
func StripErrCodePrefix(q string) string {
	return errCodePrefixRe.ReplaceAllString(q, "")
}
