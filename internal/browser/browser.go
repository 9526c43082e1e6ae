// Package browser defines the injectable boundary to a controlled
// browser. Adapters that need interactive login (Wecom) or page-driven
// catalog extraction (Dingtalk, Xiaohongshu) depend on these interfaces
// only; the actual driver is wired in by the caller and never modeled as
// a core entity.
package browser

import (
	"context"
	"time"
)

// Default operation timeouts.
const (
	PageLoadTimeout = 30 * time.Second
	SelectorTimeout = 15 * time.Second
)

// Cookie is one browser cookie.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Driver opens pages. A driver owns at most one active session.
type Driver interface {
	// NewPage opens a fresh page. The caller must Close it.
	NewPage(ctx context.Context) (Page, error)
	// Close shuts down the browser session.
	Close() error
}

// Page is one controlled browser page. One page cannot navigate
// concurrently; adapters driving a single page run at concurrency 1.
type Page interface {
	// Goto navigates to url and waits for the load event.
	Goto(ctx context.Context, url string) error
	// WaitFor blocks until the CSS selector appears.
	WaitFor(ctx context.Context, selector string) error
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript expression and returns its JSON result.
	Evaluate(ctx context.Context, expr string) ([]byte, error)
	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)
	// Cookies returns the session cookies.
	Cookies(ctx context.Context) ([]Cookie, error)
	// Close closes the page.
	Close() error
}
