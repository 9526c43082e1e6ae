// Package search turns a query string into a scored, deduplicated,
// Markdown-formatted result list.
//
// Queries are routed by class: error codes hit the error_codes table,
// api paths hit a LIKE over api_path, everything else goes through the
// FTS index with a LIKE fallback for match expressions FTS5 rejects.
package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/tokenizer"
)

// Engine executes searches against the document store.
type Engine struct {
	store *store.Store
}

// NewEngine creates a search engine over the given store.
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Search runs one query end to end and logs it. Every query, including
// zero-result ones, writes a search_log row.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	q := strings.TrimSpace(query)
	limit := ClampLimit(opts.Limit)
	kind := Classify(q)

	resp := &Response{
		Query:  q,
		Kind:   kind,
		Source: opts.Source,
		Mode:   opts.Mode,
	}
	filter := store.SearchFilter{Source: opts.Source, Mode: opts.Mode}

	var results []Result
	var err error
	switch kind {
	case KindErrorCode:
		results, err = e.searchErrorCode(ctx, q, filter, limit)
	case KindAPIPath:
		results, err = e.searchAPIPath(ctx, q, filter, limit)
	default:
		results, err = e.searchKeyword(ctx, q, filter)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.Mode == "" {
		results = dedupeByModes(results)
	}

	resp.Total = len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		results[i].Score = math.Round(results[i].Score*100) / 100
		results[i].Snippet = Snippet(results[i].Doc.Content, q)
	}
	resp.Results = results
	resp.TookMS = time.Since(start).Milliseconds()

	topScore := 0.0
	if len(results) > 0 {
		topScore = results[0].Score
	}
	if logErr := e.store.LogSearch(ctx, q, opts.Source, len(results), topScore, resp.TookMS); logErr != nil {
		slog.Warn("search_log_failed", slog.String("error", logErr.Error()))
	}

	return resp, nil
}

// searchErrorCode resolves a numeric or "errcode N" query.
func (e *Engine) searchErrorCode(ctx context.Context, q string, filter store.SearchFilter, limit int) ([]Result, error) {
	code := strings.TrimSpace(StripErrCodePrefix(q))

	ec, err := e.store.FindErrorCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if ec != nil && ec.DocID != "" {
		doc, err := e.store.GetDocument(ctx, ec.DocID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			return []Result{{Doc: doc, Score: directHitScore}}, nil
		}
	}

	// No linked document: fall back to a literal content scan.
	docs, err := e.store.SearchContentLiteral(ctx, code, filter, limit)
	if err != nil {
		return nil, err
	}
	return fixedScoreResults(docs), nil
}

// searchAPIPath resolves a path-shaped query with a LIKE over api_path.
func (e *Engine) searchAPIPath(ctx context.Context, q string, filter store.SearchFilter, limit int) ([]Result, error) {
	docs, err := e.store.SearchAPIPath(ctx, q, filter, limit)
	if err != nil {
		return nil, err
	}
	return fixedScoreResults(docs), nil
}

// searchKeyword resolves a keyword query through FTS, falling back to LIKE
// when FTS5 rejects the match expression.
func (e *Engine) searchKeyword(ctx context.Context, q string, filter store.SearchFilter) ([]Result, error) {
	tokens := tokenizer.TokenizeQuery(q)
	if len(tokens) == 0 {
		return nil, nil
	}

	match := tokenizer.Join(tokens)
	hits, err := e.store.SearchFTS(ctx, match, filter)
	if err != nil {
		if !errors.Is(err, sferrors.New(sferrors.ErrCodeMatchSyntax, "", nil)) {
			return nil, err
		}
		slog.Debug("fts_fallback_like", slog.String("query", q))
		docs, likeErr := e.store.SearchLike(ctx, tokens, filter)
		if likeErr != nil {
			return nil, likeErr
		}
		results := make([]Result, 0, len(docs))
		for _, doc := range docs {
			results = append(results, Result{Doc: doc, Score: compositeScore(doc, q, tokens, 0)})
		}
		return results, nil
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{Doc: hit.Doc, Score: compositeScore(hit.Doc, q, tokens, hit.Rank)})
	}
	return results, nil
}

func fixedScoreResults(docs []*store.Document) []Result {
	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		results = append(results, Result{Doc: doc, Score: directHitScore})
	}
	return results
}

// dedupeByModes collapses near-duplicate results that differ only by Wecom
// dev mode. The highest-scoring entry wins; the other seen modes are kept
// as an annotation. Input must already be sorted by descending score.
func dedupeByModes(results []Result) []Result {
	type key struct{ title, apiPath string }

	index := make(map[key]int, len(results))
	out := results[:0]
	for _, r := range results {
		k := key{r.Doc.Title, r.Doc.APIPath}
		if i, seen := index[k]; seen {
			kept := &out[i]
			if r.Doc.DevMode != "" && r.Doc.DevMode != kept.Doc.DevMode &&
				!containsString(kept.OtherModes, r.Doc.DevMode) {
				kept.OtherModes = append(kept.OtherModes, r.Doc.DevMode)
			}
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
