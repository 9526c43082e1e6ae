package adapter

import (
	"regexp"
	"strings"

	"github.com/specfusion/specfusion/internal/store"
)

// errCodeRowRe matches Markdown table rows of the shape
// | -40013 | message | description |. Generic 3-6 digit cells can yield
// false positives (e.g. HTTP status rows in narrative tables); no semantic
// validation is attempted.
var errCodeRowRe = regexp.MustCompile(`\|\s*(-?\d{3,6})\s*\|\s*([^|]*)\|\s*([^|]*)\|`)

// ExtractErrorCodes scans normalized Markdown for error-code table rows and
// returns deduplicated {code, message, description} triples in first-seen
// order.
func ExtractErrorCodes(markdown string) []store.ErrorCode {
	matches := errCodeRowRe.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var out []store.ErrorCode
	for _, m := range matches {
		code := m[1]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, store.ErrorCode{
			Code:        code,
			Message:     strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}
	return out
}
