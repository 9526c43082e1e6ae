// Package adapter defines the source-adapter contract and the shared
// concerns every adapter implements: rate-limited fetching, quality
// gating, error-code extraction, and Markdown normalization.
package adapter

import (
	"context"
	"time"

	"github.com/specfusion/specfusion/internal/store"
)

// DocEntry is one catalog entry: everything needed to fetch and file a
// document except its content.
type DocEntry struct {
	// Path is the hierarchical slash-delimited document path.
	Path string
	// Title is the document title.
	Title string
	// APIPath is the HTTP method+route when already known from the catalog.
	APIPath string
	// DevMode is the Wecom development-mode axis; empty elsewhere.
	DevMode string
	// DocType defaults to api_reference when empty.
	DocType store.DocType
	// SourceURL is the canonical upstream page.
	SourceURL string
	// LastUpdated is the platform's own revision date.
	LastUpdated time.Time
	// PlatformID is the source's own stable id, needed to fetch content.
	PlatformID string
}

// DocContent is the normalized result of fetching one entry.
type DocContent struct {
	// Markdown is the full normalized document body.
	Markdown string
	// APIPath extracted from content; overrides the catalog value when set.
	APIPath string
	// ErrorCodes extracted from the normalized Markdown.
	ErrorCodes []store.ErrorCode
	// Metadata is a free-form JSON string (locale, event name, labels).
	Metadata string
}

// Adapter is the contract every source implements.
type Adapter interface {
	// Source returns the stable source identifier (e.g. "wecom").
	Source() string
	// Name returns the display name.
	Name() string
	// FetchCatalog enumerates every document the source currently exposes.
	FetchCatalog(ctx context.Context) ([]DocEntry, error)
	// FetchContent returns normalized Markdown for one entry.
	FetchContent(ctx context.Context, entry DocEntry) (*DocContent, error)
	// DetectUpdates returns entries believed changed since the instant.
	// Delegating to FetchCatalog is acceptable; unchanged content is
	// short-circuited by hash comparison downstream.
	DetectUpdates(ctx context.Context, since time.Time) ([]DocEntry, error)
}

// QualityChecker is implemented by adapters that carry their own catalog
// sanity check. The sync runner consults it before permitting deletions;
// adapters without it get the default ratio gate.
type QualityChecker interface {
	CheckQualityGate(currentCount, lastCount int) error
}

// SingleFlighter is implemented by adapters that drive one browser page
// and therefore cannot fetch content concurrently.
type SingleFlighter interface {
	SingleFlight() bool
}
