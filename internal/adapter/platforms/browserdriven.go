package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/specfusion/specfusion/internal/adapter"
	"github.com/specfusion/specfusion/internal/browser"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

// browserAdapter extracts a catalog and per-doc content by driving one
// browser page. One page cannot navigate concurrently, so these adapters
// declare SingleFlight and the runner drops to one worker.
type browserAdapter struct {
	source      string
	name        string
	catalogURL  string
	docURL      string // fmt with the platform id
	catalogExpr string // JS expression yielding [{id,title,path,url}]
	contentSel  string // selector whose subtree is the doc body
	apiPathRe   func(markdown string) string
	driver      browser.Driver

	page browser.Page
}

var (
	_ adapter.Adapter        = (*browserAdapter)(nil)
	_ adapter.SingleFlighter = (*browserAdapter)(nil)
)

func (b *browserAdapter) Source() string     { return b.source }
func (b *browserAdapter) Name() string       { return b.name }
func (b *browserAdapter) SingleFlight() bool { return true }

type browserCatalogDoc struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

// FetchCatalog loads the catalog page and evaluates the extraction
// expression against the rendered DOM.
func (b *browserAdapter) FetchCatalog(ctx context.Context) ([]adapter.DocEntry, error) {
	page, err := b.ensurePage(ctx)
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, browser.PageLoadTimeout)
	defer cancel()
	if err := page.Goto(loadCtx, b.catalogURL); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" catalog page failed to load", err)
	}

	raw, err := page.Evaluate(ctx, b.catalogExpr)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" catalog extraction failed", err)
	}
	var docs []browserCatalogDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" catalog extraction returned non-JSON", err)
	}

	entries := make([]adapter.DocEntry, 0, len(docs))
	for _, doc := range docs {
		path := doc.Path
		if path == "" {
			path = doc.ID
		}
		entries = append(entries, adapter.DocEntry{
			Path:       path,
			Title:      doc.Title,
			DocType:    store.DocTypeAPIReference,
			SourceURL:  doc.URL,
			PlatformID: doc.ID,
		})
	}
	return entries, nil
}

// FetchContent navigates to the doc page, waits for the content
// container, and converts its HTML.
func (b *browserAdapter) FetchContent(ctx context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	page, err := b.ensurePage(ctx)
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, browser.PageLoadTimeout)
	defer cancel()
	if err := page.Goto(loadCtx, fmt.Sprintf(b.docURL, entry.PlatformID)); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" doc page failed to load", err)
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, browser.SelectorTimeout)
	defer cancelWait()
	if err := page.WaitFor(waitCtx, b.contentSel); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" doc content never appeared", err)
	}

	htmlStr, err := page.Content(ctx)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" page content unavailable", err)
	}
	markdown, err := adapter.HTMLToMarkdown(htmlStr)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, b.source+" doc HTML unparseable", err)
	}

	apiPath := ""
	if b.apiPathRe != nil {
		apiPath = b.apiPathRe(markdown)
	}
	return &adapter.DocContent{
		Markdown:   markdown,
		APIPath:    apiPath,
		ErrorCodes: adapter.ExtractErrorCodes(markdown),
	}, nil
}

// DetectUpdates delegates to FetchCatalog; rendered catalogs expose no
// revision dates.
func (b *browserAdapter) DetectUpdates(ctx context.Context, _ time.Time) ([]adapter.DocEntry, error) {
	return b.FetchCatalog(ctx)
}

func (b *browserAdapter) ensurePage(ctx context.Context) (browser.Page, error) {
	if b.page != nil {
		return b.page, nil
	}
	if b.driver == nil {
		return nil, sferrors.New(sferrors.ErrCodeInvalidInput,
			b.source+" requires a browser driver", nil)
	}
	page, err := b.driver.NewPage(ctx)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "failed to open browser page", err)
	}
	b.page = page
	return page, nil
}

// Close releases the page, if one was opened.
func (b *browserAdapter) Close() error {
	if b.page == nil {
		return nil
	}
	err := b.page.Close()
	b.page = nil
	return err
}

// NewDingtalk drives the 钉钉开放平台 docs site.
func NewDingtalk(driver browser.Driver) *browserAdapter {
	return &browserAdapter{
		source:     "dingtalk",
		name:       "钉钉开放平台",
		driver:     driver,
		catalogURL: "https://open.dingtalk.com/document/orgapp",
		docURL:     "https://open.dingtalk.com/document/orgapp/%s",
		catalogExpr: `JSON.stringify(Array.from(document.querySelectorAll('.doc-menu a')).map(a => ({
			id: a.getAttribute('href').split('/').pop(),
			title: a.textContent.trim(),
			url: a.href
		})))`,
		contentSel: ".doc-content",
		apiPathRe: func(markdown string) string {
			return extractAPIPath(dingtalkAPIRe, markdown)
		},
	}
}

// NewXiaohongshu drives the 小红书开放平台 docs site.
func NewXiaohongshu(driver browser.Driver) *browserAdapter {
	return &browserAdapter{
		source:     "xiaohongshu",
		name:       "小红书开放平台",
		driver:     driver,
		catalogURL: "https://open.xiaohongshu.com/document",
		docURL:     "https://open.xiaohongshu.com/document/%s",
		catalogExpr: `JSON.stringify(Array.from(document.querySelectorAll('.menu-item a')).map(a => ({
			id: a.getAttribute('href').split('/').pop(),
			title: a.textContent.trim(),
			url: a.href
		})))`,
		contentSel: ".document-content",
	}
}
