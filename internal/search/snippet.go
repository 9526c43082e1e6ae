package search

import (
	"regexp"
	"strings"

	"github.com/specfusion/specfusion/internal/tokenizer"
)

// snippetWindow is the maximum snippet length in characters (runes, not
// bytes; Chinese text must never be sliced mid-sequence).
const snippetWindow = 200

var (
	markdownDecorRe = regexp.MustCompile("[#*`>|]|\\[|\\]|\\(|\\)")
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Snippet extracts a ≤200-character window from content, centered on the
// first occurrence of the full query, falling back to the first query
// token, then to the content prefix. Truncated ends are marked with
// ellipses.
func Snippet(content, query string) string {
	clean := whitespaceRe.ReplaceAllString(markdownDecorRe.ReplaceAllString(content, " "), " ")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return ""
	}

	runes := []rune(clean)
	if len(runes) <= snippetWindow {
		return clean
	}

	center := findRuneIndex(clean, query)
	if center < 0 {
		if tokens := tokenizer.TokenizeQuery(query); len(tokens) > 0 {
			center = findRuneIndex(clean, tokens[0])
		}
	}
	if center < 0 {
		center = 0
	}

	start := center - snippetWindow/2
	if start < 0 {
		start = 0
	}
	end := start + snippetWindow
	if end > len(runes) {
		end = len(runes)
		start = end - snippetWindow
		if start < 0 {
			start = 0
		}
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet += "…"
	}
	return snippet
}

// findRuneIndex returns the rune offset of the first case-insensitive
// occurrence of needle in haystack, or -1.
func findRuneIndex(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	byteIdx := strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(haystack[:byteIdx]))
}
