// Package platforms holds the long tail of source adapters: Feishu,
// Douyin, Youzan, the two WeChat surfaces, Pinduoduo's offline dump,
// Taobao's defended API, and the browser-driven Dingtalk and Xiaohongshu
// catalogs.
package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

// platformConfig describes one plain HTTP-JSON documentation source.
type platformConfig struct {
	source      string
	name        string
	baseURL     string
	catalogPath string
	contentPath string
	apiPathRe   *regexp.Regexp
	delay       time.Duration
	jitter      time.Duration
}

// httpAdapter is the shared implementation for sources that expose a JSON
// catalog endpoint and a per-document content endpoint.
type httpAdapter struct {
	cfg     platformConfig
	client  *http.Client
	limiter adapter.RateLimiter
}

var _ adapter.Adapter = (*httpAdapter)(nil)

func newHTTPAdapter(cfg platformConfig) *httpAdapter {
	return &httpAdapter{
		cfg:     cfg,
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: &adapter.FixedDelay{Base: cfg.delay, Jitter: cfg.jitter},
	}
}

func (a *httpAdapter) Source() string { return a.cfg.source }
func (a *httpAdapter) Name() string   { return a.cfg.name }

type catalogDoc struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	URL        string `json:"url"`
	DocType    string `json:"doc_type"`
	UpdateTime int64  `json:"update_time"`
}

type catalogPayload struct {
	Data struct {
		Docs []catalogDoc `json:"docs"`
	} `json:"data"`
}

// FetchCatalog fetches the JSON document list. Entries without a path
// fall back to the platform id.
func (a *httpAdapter) FetchCatalog(ctx context.Context) ([]adapter.DocEntry, error) {
	body, err := a.get(ctx, a.cfg.baseURL+a.cfg.catalogPath)
	if err != nil {
		return nil, err
	}
	var payload catalogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream,
			a.cfg.source+" catalog is not JSON", err)
	}

	entries := make([]adapter.DocEntry, 0, len(payload.Data.Docs))
	for _, doc := range payload.Data.Docs {
		path := doc.Path
		if path == "" {
			path = doc.ID
		}
		entry := adapter.DocEntry{
			Path:       path,
			Title:      doc.Title,
			DocType:    store.DocType(doc.DocType),
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

type contentPayload struct {
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

// FetchContent fetches one document, converts it to Markdown, and runs
// the platform's api-path regex over the result.
func (a *httpAdapter) FetchContent(ctx context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s?id=%s", a.cfg.baseURL, a.cfg.contentPath, entry.PlatformID)
	body, err := a.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var payload contentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream,
			a.cfg.source+" content is not JSON", err)
	}

	markdown := payload.Data.Content
	if strings.Contains(markdown, "<") {
		markdown, err = adapter.HTMLToMarkdown(markdown)
		if err != nil {
			return nil, sferrors.New(sferrors.ErrCodeBadUpstream,
				a.cfg.source+" content HTML unparseable", err)
		}
	}

	return &adapter.DocContent{
		Markdown:   markdown,
		APIPath:    extractAPIPath(a.cfg.apiPathRe, markdown),
		ErrorCodes: adapter.ExtractErrorCodes(markdown),
	}, nil
}

// DetectUpdates keeps entries revised after since; undated entries stay
// so the hash check downstream decides.
func (a *httpAdapter) DetectUpdates(ctx context.Context, since time.Time) ([]adapter.DocEntry, error) {
	entries, err := a.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	changed := entries[:0]
	for _, e := range entries {
		if e.LastUpdated.IsZero() || e.LastUpdated.After(since) {
			changed = append(changed, e)
		}
	}
	return changed, nil
}

func (a *httpAdapter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "fetch failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream,
			fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}
	return io.ReadAll(resp.Body)
}

// extractAPIPath applies a platform regex expected to capture either
// (method, route) or a single full-URL group.
func extractAPIPath(re *regexp.Regexp, markdown string) string {
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(markdown)
	switch {
	case m == nil:
		return ""
	case len(m) >= 3 && m[1] != "" && m[2] != "":
		return m[1] + " " + m[2]
	default:
		return m[len(m)-1]
	}
}

// Per-platform api-path patterns.
var (
	feishuAPIRe   = regexp.MustCompile(`(?m)(GET|POST|PUT|PATCH|DELETE)\s+(/open-apis/[^\s\x60)）]+)`)
	dingtalkAPIRe = regexp.MustCompile(`(?m)(GET|POST|PUT|DELETE)\s+(/v\d+\.\d+/[^\s\x60)）]+|https://oapi\.dingtalk\.com/[^\s\x60)）]+)`)
	wechatAPIRe   = regexp.MustCompile(`(?m)(?:(GET|POST)\s+)?(https://api\.weixin\.qq\.com/[^\s\x60"')）]+)`)
	douyinAPIRe   = regexp.MustCompile(`(?m)(GET|POST)\s+(/api/apps/[^\s\x60)）]+)`)
	youzanAPIRe   = regexp.MustCompile(`(?m)(youzan\.[a-z0-9.]+)`)
)

// NewFeishu serves the 飞书 open-platform docs.
func NewFeishu() adapter.Adapter {
	return newHTTPAdapter(platformConfig{
		source:      "feishu",
		name:        "飞书开放平台",
		baseURL:     "https://open.feishu.cn",
		catalogPath: "/document_portal/v1/document/get_catalog",
		contentPath: "/document_portal/v1/document/get_detail",
		apiPathRe:   feishuAPIRe,
		delay:       800 * time.Millisecond,
		jitter:      400 * time.Millisecond,
	})
}

// NewDouyin serves the 抖音开放平台 miniapp docs.
func NewDouyin() adapter.Adapter {
	return newHTTPAdapter(platformConfig{
		source:      "douyin",
		name:        "抖音开放平台",
		baseURL:     "https://developer.open-douyin.com",
		catalogPath: "/api/docs/catalog",
		contentPath: "/api/docs/detail",
		apiPathRe:   douyinAPIRe,
		delay:       time.Second,
		jitter:      500 * time.Millisecond,
	})
}

// NewYouzan serves the 有赞云 docs; api paths are dotted method names.
func NewYouzan() adapter.Adapter {
	return newHTTPAdapter(platformConfig{
		source:      "youzan",
		name:        "有赞云",
		baseURL:     "https://doc.youzanyun.com",
		catalogPath: "/api/doc/catalog",
		contentPath: "/api/doc/detail",
		apiPathRe:   youzanAPIRe,
		delay:       time.Second,
		jitter:      500 * time.Millisecond,
	})
}

// NewWechatMiniprogram serves the 微信小程序 docs.
func NewWechatMiniprogram() adapter.Adapter {
	return newHTTPAdapter(platformConfig{
		source:      "wechat_mp",
		name:        "微信小程序",
		baseURL:     "https://developers.weixin.qq.com",
		catalogPath: "/miniprogram/api/catalog",
		contentPath: "/miniprogram/api/detail",
		apiPathRe:   wechatAPIRe,
		delay:       time.Second,
		jitter:      500 * time.Millisecond,
	})
}

// NewWechatShop serves the 微信小店 docs.
func NewWechatShop() adapter.Adapter {
	return newHTTPAdapter(platformConfig{
		source:      "wechat_shop",
		name:        "微信小店",
		baseURL:     "https://developers.weixin.qq.com",
		catalogPath: "/shop/api/catalog",
		contentPath: "/shop/api/detail",
		apiPathRe:   wechatAPIRe,
		delay:       time.Second,
		jitter:      500 * time.Millisecond,
	})
}
