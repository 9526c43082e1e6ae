// Package server exposes the read endpoints and the token-guarded admin
// surface over HTTP. All read responses are Markdown; admin and health
// responses are JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/specfusion/specfusion/internal/config"
	"github.com/specfusion/specfusion/internal/search"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/telemetry"
)

const (
	// maxAdminBody bounds bulk-upsert payloads.
	maxAdminBody = 50 << 20

	// summaryCacheSize bounds the doc-summary LRU.
	summaryCacheSize = 512

	readTimeout     = 30 * time.Second
	writeTimeout    = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server wires the store, the search engine, and the HTTP surface.
type Server struct {
	store   *store.Store
	engine  *search.Engine
	cfg     *config.Config
	logger  *slog.Logger
	limiter *ipLimiter
	metrics *telemetry.SearchMetrics

	// summaries caches rendered doc summaries keyed by id+content hash,
	// so a re-synced document never serves a stale preview.
	summaries *lru.Cache[string, string]
}

// New creates a Server over an opened store.
func New(st *store.Store, cfg *config.Config) *Server {
	cache, _ := lru.New[string, string](summaryCacheSize)
	return &Server{
		store:     st,
		engine:    search.NewEngine(st),
		cfg:       cfg,
		logger:    slog.Default().With("component", "server"),
		limiter:   newIPLimiter(readRateLimit, time.Minute),
		metrics:   telemetry.NewSearchMetrics(),
		summaries: cache,
	}
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/search", s.rateLimited(s.handleSearch))
	mux.HandleFunc("GET /api/doc/{id}", s.rateLimited(s.handleDoc))
	mux.HandleFunc("GET /api/sources", s.rateLimited(s.handleSources))
	mux.HandleFunc("GET /api/categories", s.rateLimited(s.handleCategories))
	mux.HandleFunc("GET /api/categories/{source}/{category}", s.rateLimited(s.handleCategoryDocs))
	mux.HandleFunc("GET /api/recent", s.rateLimited(s.handleRecent))
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/admin/upsert", s.adminOnly(s.handleUpsert))
	mux.HandleFunc("POST /api/admin/bulk-upsert", s.adminOnly(s.handleBulkUpsert))
	mux.HandleFunc("DELETE /api/admin/doc/{id}", s.adminOnly(s.handleDelete))
	mux.HandleFunc("POST /api/admin/reindex", s.adminOnly(s.handleReindex))

	return s.recover(s.cors(s.logRequests(mux)))
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "event_name", "server_start", "port", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
