package search

import (
	"github.com/specfusion/specfusion/internal/store"
)

// Limit bounds for the /search endpoint.
const (
	DefaultLimit = 5
	MaxLimit     = 20
)

// directHitScore is the fixed score assigned by the error-code and api-path
// paths, which bypass BM25 entirely.
const directHitScore = 50.0

// Options narrow and size a search.
type Options struct {
	// Source restricts results to one source id.
	Source string
	// Mode restricts results to one Wecom dev mode; it also disables
	// dev-mode deduplication.
	Mode string
	// Limit is clamped to [1, MaxLimit]; zero means DefaultLimit.
	Limit int
}

// ClampLimit applies the [1, MaxLimit] bounds with the default for zero.
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Result is one scored, deduplicated search hit.
type Result struct {
	Doc     *store.Document
	Score   float64
	Snippet string
	// OtherModes lists dev modes of near-duplicate documents collapsed
	// into this result.
	OtherModes []string
}

// Response is the outcome of one search.
type Response struct {
	Query   string
	Kind    Kind
	Source  string
	Mode    string
	Total   int
	TookMS  int64
	Results []Result
}
