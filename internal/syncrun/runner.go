// Package syncrun orchestrates ingest runs: catalog fetch, quality gate,
// concurrent content fetch, batched admin upserts, and sync-log
// bookkeeping.
package syncrun

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/server"
	"github.com/specfusion/specfusion/internal/store"
)

const (
	// defaultConcurrency is the content-fetch pool size. Single-flight
	// adapters drop to 1.
	defaultConcurrency = 6

	// batchSize is the bulk-upsert batch size.
	batchSize = 50

	// incrementalWindow is how far back detectUpdates looks.
	incrementalWindow = 7 * 24 * time.Hour
)

// Options tune one run.
type Options struct {
	// Incremental uses DetectUpdates instead of the full catalog.
	Incremental bool
	// Limit truncates the catalog; zero means no truncation. Debug aid.
	Limit int
}

// Result is the outcome of syncing one source.
type Result struct {
	Source    string
	Total     int
	Created   int
	Updated   int
	Unchanged int
	Errors    int
}

// Runner drives sync runs. The store handles sync-log bookkeeping and the
// quality-gate baseline; documents travel through the admin API so the
// server process stays the single writer path for content.
type Runner struct {
	registry *adapter.Registry
	client   *Client
	store    *store.Store
	logger   *slog.Logger
}

// NewRunner wires a runner.
func NewRunner(registry *adapter.Registry, client *Client, st *store.Store) *Runner {
	return &Runner{
		registry: registry,
		client:   client,
		store:    st,
		logger:   slog.Default().With("component", "syncrun"),
	}
}

// RunAll syncs every registered source sequentially. Per-source failures
// do not stop the remaining sources.
func (r *Runner) RunAll(ctx context.Context, opts Options) ([]*Result, error) {
	var results []*Result
	var firstErr error
	for _, source := range r.registry.Sources() {
		result, err := r.RunSource(ctx, source, opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Error("source sync failed",
				"event_name", "sync_source_failed", "source", source, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results, firstErr
}

// RunSource syncs one source end to end.
func (r *Runner) RunSource(ctx context.Context, sourceID string, opts Options) (*Result, error) {
	ad, err := r.registry.New(sourceID)
	if err != nil {
		return nil, err
	}

	logID, err := r.store.CreateSyncLog(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	result, runErr := r.run(ctx, ad, opts)
	counts := store.SyncCounts{}
	status := store.SyncStatusFailed
	if result != nil {
		counts.Created = result.Created
		counts.Updated = result.Updated
		counts.Unchanged = result.Unchanged
	}
	if runErr != nil {
		counts.Error = runErr.Error()
	} else {
		status = store.SyncStatusSuccess
		if err := r.store.UpdateSourceSyncTime(ctx, sourceID); err != nil {
			r.logger.Warn("sync time update failed",
				"event_name", "sync_time_update_failed", "source", sourceID, "error", err)
		}
	}
	if err := r.store.UpdateSyncLog(ctx, logID, status, counts); err != nil {
		r.logger.Warn("sync log update failed",
			"event_name", "sync_log_update_failed", "source", sourceID, "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	r.logger.Info("sync complete",
		"event_name", "sync_complete",
		"source", sourceID,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"errors", result.Errors,
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, ad adapter.Adapter, opts Options) (*Result, error) {
	sourceID := ad.Source()
	result := &Result{Source: sourceID}

	var entries []adapter.DocEntry
	var err error
	if opts.Incremental {
		entries, err = ad.DetectUpdates(ctx, time.Now().Add(-incrementalWindow))
	} else {
		entries, err = ad.FetchCatalog(ctx)
	}
	if err != nil {
		return result, err
	}

	if err := r.checkQualityGate(ctx, ad, len(entries), opts); err != nil {
		return result, err
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	result.Total = len(entries)
	if len(entries) == 0 {
		return result, nil
	}

	concurrency := defaultConcurrency
	if sf, ok := ad.(adapter.SingleFlighter); ok && sf.SingleFlight() {
		concurrency = 1
	}

	progressEvery := len(entries) / 10
	if progressEvery < 100 {
		progressEvery = 100
	}

	batcher := &batcher{
		client:     r.client,
		source:     sourceID,
		sourceName: ad.Name(),
		logger:     r.logger,
		result:     result,
	}

	work := make(chan adapter.DocEntry)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for _, entry := range entries {
			select {
			case work <- entry:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var processed int
	var mu sync.Mutex
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for entry := range work {
				content, err := ad.FetchContent(gctx, entry)

				mu.Lock()
				processed++
				done := processed
				mu.Unlock()

				if err != nil {
					if sferrors.IsFatal(err) {
						return err
					}
					batcher.countError()
					r.logger.Warn("document fetch failed",
						"event_name", "doc_fetch_failed",
						"source", sourceID, "path", entry.Path, "error", err)
					continue
				}

				if err := batcher.add(gctx, toPayload(entry, content),
					toErrorCodes(entry.Path, content.ErrorCodes)...); err != nil {
					return err
				}
				if done%progressEvery == 0 {
					r.logger.Info("sync progress",
						"event_name", "sync_progress",
						"source", sourceID, "processed", done, "total", len(entries))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := batcher.flush(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// checkQualityGate compares the catalog size against the previous
// successful run. Incremental catalogs are naturally partial, so the gate
// only applies to full runs without a limit.
func (r *Runner) checkQualityGate(ctx context.Context, ad adapter.Adapter, currentCount int, opts Options) error {
	if opts.Incremental || opts.Limit > 0 {
		return nil
	}
	last, err := r.store.LastSuccessfulSyncLog(ctx, ad.Source())
	if err != nil {
		return err
	}
	lastCount := 0
	if last != nil {
		lastCount = last.Created + last.Updated + last.Unchanged
	}

	if qc, ok := ad.(adapter.QualityChecker); ok {
		return qc.CheckQualityGate(currentCount, lastCount)
	}
	return adapter.CheckQualityGate(currentCount, lastCount)
}

// batcher accumulates documents and flushes full batches to the admin
// API. Flushes are sequential; the mutex also serializes appends from the
// worker pool.
type batcher struct {
	client     *Client
	source     string
	sourceName string
	logger     *slog.Logger
	result     *Result

	mu      sync.Mutex
	pending []server.DocumentPayload
	codes   []server.ErrorCodePayload
}

func (b *batcher) add(ctx context.Context, doc server.DocumentPayload, codes ...server.ErrorCodePayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, doc)
	b.codes = append(b.codes, codes...)
	if len(b.pending) < batchSize {
		return nil
	}
	return b.flushLocked(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *batcher) flushLocked(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	req := server.BulkUpsertRequest{
		Source:     b.source,
		SourceName: b.sourceName,
		Documents:  b.pending,
		ErrorCodes: b.codes,
	}
	batchLen := len(b.pending)
	b.pending = nil
	b.codes = nil

	resp, err := b.client.BulkUpsert(ctx, req)
	if err != nil {
		// A failed batch counts as errors; the run continues.
		b.result.Errors += batchLen
		b.logger.Warn("batch upsert failed",
			"event_name", "batch_upsert_failed", "source", b.source, "size", batchLen, "error", err)
		return nil
	}
	b.result.Created += resp.Created
	b.result.Updated += resp.Updated
	b.result.Unchanged += resp.Unchanged
	return nil
}

func (b *batcher) countError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.Errors++
}

// toPayload merges the fetched content over the catalog entry; the
// content's extracted api path wins.
func toPayload(entry adapter.DocEntry, content *adapter.DocContent) server.DocumentPayload {
	apiPath := entry.APIPath
	if content.APIPath != "" {
		apiPath = content.APIPath
	}
	docType := entry.DocType
	if docType == "" {
		docType = store.DocTypeAPIReference
	}

	payload := server.DocumentPayload{
		Path:      entry.Path,
		Title:     entry.Title,
		APIPath:   apiPath,
		DevMode:   entry.DevMode,
		DocType:   string(docType),
		Content:   content.Markdown,
		SourceURL: entry.SourceURL,
		Metadata:  content.Metadata,
	}
	if !entry.LastUpdated.IsZero() {
		payload.LastUpdated = entry.LastUpdated.Format(time.RFC3339)
	}
	return payload
}

func toErrorCodes(docPath string, codes []store.ErrorCode) []server.ErrorCodePayload {
	out := make([]server.ErrorCodePayload, 0, len(codes))
	for _, c := range codes {
		out = append(out, server.ErrorCodePayload{
			Code:        c.Code,
			Message:     c.Message,
			Description: c.Description,
			DocPath:     docPath,
		})
	}
	return out
}

// Summary renders the per-source results for the CLI.
func Summary(results []*Result) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("%s: %d docs (%d created, %d updated, %d unchanged, %d errors)\n",
			r.Source, r.Total, r.Created, r.Updated, r.Unchanged, r.Errors)
	}
	return out
}
