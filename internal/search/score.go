package search

import (
	"math"
	"strings"
	"time"

	"github.com/specfusion/specfusion/internal/store"
)

// Recency windows for the freshness bonus.
const (
	recencyNearDays = 30
	recencyFarDays  = 90
)

// compositeScore combines the ranking signals for one keyword candidate:
//
//	+20  title contains the entire original query (case-insensitive)
//	+5×  fraction of query tokens contained in the title
//	+|bm25| (bm25 is negative; zero on the LIKE fallback path)
//	+3   doc_type is api_reference
//	+3/+1 last_updated within 30/90 days
//	−0.5 per path segment
func compositeScore(doc *store.Document, query string, tokens []string, bm25Rank float64) float64 {
	score := 0.0

	titleLower := strings.ToLower(doc.Title)
	if strings.Contains(titleLower, strings.ToLower(query)) {
		score += 20
	}

	if len(tokens) > 0 {
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(titleLower, strings.ToLower(tok)) {
				matched++
			}
		}
		score += 5 * float64(matched) / float64(len(tokens))
	}

	score += math.Abs(bm25Rank)

	if doc.DocType == store.DocTypeAPIReference {
		score += 3
	}

	if !doc.LastUpdated.IsZero() {
		age := time.Since(doc.LastUpdated)
		switch {
		case age <= recencyNearDays*24*time.Hour:
			score += 3
		case age <= recencyFarDays*24*time.Hour:
			score += 1
		}
	}

	score -= 0.5 * float64(doc.PathDepth)
	return score
}
