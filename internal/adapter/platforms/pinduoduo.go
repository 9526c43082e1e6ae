package platforms

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

// Env vars for the Pinduoduo offline flow.
const (
	PDDJSONPathEnv = "PDD_JSON_PATH"
	PDDCookieEnv   = "PDD_COOKIE"
)

// Pinduoduo reads a local JSON dump instead of scraping: the platform
// cannot be self-served, so an operator exports the doc list out of band
// and points PDD_JSON_PATH at it.
type Pinduoduo struct {
	dumpPath string
	docs     map[string]pddDoc
}

var _ adapter.Adapter = (*Pinduoduo)(nil)

type pddDoc struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Title      string `json:"title"`
	APIPath    string `json:"api_path"`
	Content    string `json:"content"`
	URL        string `json:"url"`
	UpdateTime int64  `json:"update_time"`
}

// NewPinduoduo reads the dump path from the environment.
func NewPinduoduo() *Pinduoduo {
	return &Pinduoduo{dumpPath: os.Getenv(PDDJSONPathEnv)}
}

// NewPinduoduoWithDump is the test constructor.
func NewPinduoduoWithDump(path string) *Pinduoduo {
	return &Pinduoduo{dumpPath: path}
}

func (p *Pinduoduo) Source() string { return "pinduoduo" }
func (p *Pinduoduo) Name() string   { return "拼多多开放平台" }

// FetchCatalog loads the dump and lists its entries.
func (p *Pinduoduo) FetchCatalog(_ context.Context) ([]adapter.DocEntry, error) {
	if err := p.load(); err != nil {
		return nil, err
	}

	entries := make([]adapter.DocEntry, 0, len(p.docs))
	for _, doc := range p.docs {
		path := doc.Path
		if path == "" {
			path = doc.ID
		}
		entry := adapter.DocEntry{
			Path:       path,
			Title:      doc.Title,
			APIPath:    doc.APIPath,
			DocType:    store.DocTypeAPIReference,
			SourceURL:  doc.URL,
			PlatformID: doc.ID,
		}
		if doc.UpdateTime > 0 {
			entry.LastUpdated = time.Unix(doc.UpdateTime, 0).UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FetchContent serves the entry straight out of the dump.
func (p *Pinduoduo) FetchContent(_ context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	doc, ok := p.docs[entry.PlatformID]
	if !ok {
		return nil, sferrors.New(sferrors.ErrCodeDocNotFound,
			"doc "+entry.PlatformID+" not in dump", nil)
	}

	markdown := doc.Content
	if containsHTML(markdown) {
		converted, err := adapter.HTMLToMarkdown(markdown)
		if err != nil {
			return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "dump content HTML unparseable", err)
		}
		markdown = converted
	}

	return &adapter.DocContent{
		Markdown:   markdown,
		APIPath:    doc.APIPath,
		ErrorCodes: adapter.ExtractErrorCodes(markdown),
	}, nil
}

// DetectUpdates delegates to FetchCatalog; the dump carries its own dates.
func (p *Pinduoduo) DetectUpdates(ctx context.Context, _ time.Time) ([]adapter.DocEntry, error) {
	return p.FetchCatalog(ctx)
}

func (p *Pinduoduo) load() error {
	if p.docs != nil {
		return nil
	}
	if p.dumpPath == "" {
		return sferrors.New(sferrors.ErrCodeInvalidInput,
			PDDJSONPathEnv+" not set", nil).
			WithSuggestion("export the Pinduoduo doc dump and point " + PDDJSONPathEnv + " at it")
	}
	data, err := os.ReadFile(p.dumpPath)
	if err != nil {
		return sferrors.New(sferrors.ErrCodeInvalidInput, "cannot read dump "+p.dumpPath, err)
	}

	var docs []pddDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return sferrors.New(sferrors.ErrCodeInvalidInput, "dump is not a JSON doc list", err)
	}
	p.docs = make(map[string]pddDoc, len(docs))
	for _, doc := range docs {
		p.docs[doc.ID] = doc
	}
	return nil
}

func containsHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, tag := range []string{"<p", "<div", "<table", "<pre", "<h1", "<h2"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}
