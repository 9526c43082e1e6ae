// Package wecom syncs the 企业微信 (WeCom) developer documentation. It is
// the most defended upstream: captcha challenges, 429 bursts, and
// login-gated content all appear in normal operation.
package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

const (
	// DefaultBaseURL is the production documentation host.
	DefaultBaseURL = "https://developer.work.weixin.qq.com"

	captchaErrCode = 500003
	captchaMarker  = "showDeveloperCaptcha"

	captchaMaxAttempts = 3
	tooManyMaxAttempts = 5
)

// Backoff steps; vars so tests can shrink them.
var (
	captchaBackoffStep = 3 * time.Second
	tooManyBackoffStep = 1500 * time.Millisecond
)

var lastUpdatedRe = regexp.MustCompile(`最后更新[：:]\s*(\d{4}-\d{2}-\d{2})`)

// Adapter holds per-run session state: cookies, the adaptive limiter, and
// the request counter inside it.
type Adapter struct {
	baseURL string
	client  *http.Client
	cookies *CookieJar
	limiter *adapter.AdaptiveStepper
	logger  *slog.Logger
}

var (
	_ adapter.Adapter        = (*Adapter)(nil)
	_ adapter.QualityChecker = (*Adapter)(nil)
)

// New creates a Wecom adapter against the production host.
func New(jar *CookieJar) *Adapter {
	return NewWithBase(DefaultBaseURL, jar)
}

// NewWithBase creates an adapter against an alternate host, used in tests.
func NewWithBase(baseURL string, jar *CookieJar) *Adapter {
	if jar == nil {
		jar = &CookieJar{}
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		cookies: jar,
		limiter: &adapter.AdaptiveStepper{},
		logger:  slog.Default().With("source", store.SourceWecom),
	}
}

// Source implements adapter.Adapter.
func (a *Adapter) Source() string { return store.SourceWecom }

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return "企业微信" }

// CheckQualityGate implements adapter.QualityChecker with the default
// ratio bounds.
func (a *Adapter) CheckQualityGate(currentCount, lastCount int) error {
	return adapter.CheckQualityGate(currentCount, lastCount)
}

type catalogResponse struct {
	Data struct {
		CateList []Category `json:"cate_list"`
	} `json:"data"`
}

// FetchCatalog fetches the flat category list and walks the tree
// depth-first. The limiter resets so the run starts on the fast step.
func (a *Adapter) FetchCatalog(ctx context.Context) ([]adapter.DocEntry, error) {
	a.limiter.Reset()

	body, err := a.postJSON(ctx, "/doc/cate/list", map[string]any{})
	if err != nil {
		return nil, sferrors.Wrap(sferrors.ErrCodeBadUpstream, err)
	}
	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "category list is not JSON", err)
	}

	roots := buildTree(resp.Data.CateList)

	var entries []adapter.DocEntry
	var walk func(nodes []*Category, prefix string)
	walk = func(nodes []*Category, prefix string) {
		seen := map[string]bool{}
		for i, node := range nodes {
			seg := segment(i+1, node, seen)
			full := seg
			if prefix != "" {
				full = prefix + "/" + seg
			}
			if node.isFolder() {
				walk(node.children, full)
				continue
			}
			entry := adapter.DocEntry{
				Path:       full,
				Title:      node.Name,
				DevMode:    devModeFromURL(node.URL),
				DocType:    store.DocTypeAPIReference,
				SourceURL:  a.docPageURL(node.DocID),
				PlatformID: fmt.Sprintf("%d", node.DocID),
			}
			if node.UpdateTime > 0 {
				entry.LastUpdated = time.Unix(node.UpdateTime, 0).UTC()
			}
			entries = append(entries, entry)
		}
	}
	walk(roots, "")
	return entries, nil
}

type contentResponse struct {
	Result struct {
		ErrCode int `json:"errCode"`
	} `json:"result"`
	Data struct {
		DocCnt struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			Time    string `json:"time"`
			Extra   struct {
				UpdateTime        int64  `json:"update_time"`
				LastUpdateTime    int64  `json:"last_update_time"`
				LastUpdateTimeStr string `json:"last_update_time_str"`
			} `json:"extra"`
		} `json:"doc_cnt"`
	} `json:"data"`
}

// FetchContent fetches one document: the page first (primes cookies and
// yields HTML for date extraction), then the content endpoint.
func (a *Adapter) FetchContent(ctx context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pageHTML, err := a.getPage(ctx, a.docPageURL(mustID(entry.PlatformID)))
	if err != nil {
		a.logger.Warn("doc page fetch failed", "event_name", "wecom_page_failed",
			"doc_id", entry.PlatformID, "error", err)
	}

	body, err := a.fetchCnt(ctx, entry.PlatformID)
	if err != nil {
		return nil, err
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "doc content is not JSON", err)
	}
	cnt := resp.Data.DocCnt

	markdown, err := adapter.HTMLToMarkdown(cnt.Content)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "doc HTML unparseable", err)
	}

	updated := extractDate(cnt.Time, pageHTML,
		cnt.Extra.UpdateTime, cnt.Extra.LastUpdateTime, cnt.Extra.LastUpdateTimeStr)

	meta := ""
	if !updated.IsZero() {
		meta = fmt.Sprintf(`{"last_updated":%q}`, updated.Format("2006-01-02"))
	}

	return &adapter.DocContent{
		Markdown:   markdown,
		APIPath:    extractAPIPath(markdown),
		ErrorCodes: adapter.ExtractErrorCodes(markdown),
		Metadata:   meta,
	}, nil
}

// DetectUpdates returns catalog entries whose platform revision date is
// after since; entries without a date are kept so the hash check decides.
func (a *Adapter) DetectUpdates(ctx context.Context, since time.Time) ([]adapter.DocEntry, error) {
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

// fetchCnt posts the content endpoint with captcha and 429 backoff
// schedules.
func (a *Adapter) fetchCnt(ctx context.Context, docID string) ([]byte, error) {
	captchaAttempt := 0
	tooManyAttempt := 0

	for {
		body, status, err := a.post(ctx, "/docFetch/fetchCnt", map[string]any{"doc_id": docID})
		if err != nil {
			return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "content fetch failed", err)
		}

		if status == http.StatusTooManyRequests {
			tooManyAttempt++
			if tooManyAttempt > tooManyMaxAttempts {
				return nil, sferrors.New(sferrors.ErrCodeUpstreamRateLimit,
					fmt.Sprintf("still rate limited after %d retries for doc %s", tooManyMaxAttempts, docID), nil)
			}
			if err := sleepCtx(ctx, time.Duration(tooManyAttempt)*tooManyBackoffStep); err != nil {
				return nil, err
			}
			continue
		}

		if isCaptcha(body) {
			captchaAttempt++
			if captchaAttempt > captchaMaxAttempts {
				return nil, sferrors.New(sferrors.ErrCodeCaptcha,
					fmt.Sprintf("captcha persisted after %d retries for doc %s", captchaMaxAttempts, docID), nil).
					WithSuggestion("refresh cookies via interactive login")
			}
			a.logger.Warn("captcha challenge", "event_name", "wecom_captcha",
				"doc_id", docID, "attempt", captchaAttempt)
			if err := sleepCtx(ctx, time.Duration(captchaAttempt)*captchaBackoffStep); err != nil {
				return nil, err
			}
			continue
		}

		return body, nil
	}
}

// isCaptcha classifies a response body as a captcha challenge.
func isCaptcha(body []byte) bool {
	if bytes.Contains(body, []byte(captchaMarker)) {
		return true
	}
	var probe struct {
		Result struct {
			ErrCode int `json:"errCode"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Result.ErrCode == captchaErrCode
}

// extractDate implements the preference chain: the time field, then the
// 最后更新 marker in page HTML, then the extra timestamps. The most recent
// candidate wins.
func extractDate(timeField, pageHTML string, updateTime, lastUpdateTime int64, lastUpdateStr string) time.Time {
	var candidates []time.Time

	add := func(t time.Time, ok bool) {
		if ok && !t.IsZero() {
			candidates = append(candidates, t)
		}
	}
	add(parseDate(timeField))
	if m := lastUpdatedRe.FindStringSubmatch(pageHTML); m != nil {
		add(parseDate(m[1]))
	}
	if updateTime > 0 {
		add(time.Unix(updateTime, 0).UTC(), true)
	}
	if lastUpdateTime > 0 {
		add(time.Unix(lastUpdateTime, 0).UTC(), true)
	}
	add(parseDate(lastUpdateStr))

	var best time.Time
	for _, c := range candidates {
		if c.After(best) {
			best = c
		}
	}
	return best
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

var apiPathRe = regexp.MustCompile(`(?m)(GET|POST|PUT|DELETE)\s+(/cgi-bin/[^\s\x60)）,，]+)`)

// extractAPIPath pulls the first method + /cgi-bin route from the body.
func extractAPIPath(markdown string) string {
	if m := apiPathRe.FindStringSubmatch(markdown); m != nil {
		return m[1] + " " + m[2]
	}
	return ""
}

func (a *Adapter) docPageURL(docID int64) string {
	return fmt.Sprintf("%s/document/path/%d", a.baseURL, docID)
}

func (a *Adapter) getPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	a.cookies.Apply(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (a *Adapter) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, status, err := a.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, status)
	}
	return body, nil
}

func (a *Adapter) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.cookies.Apply(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func mustID(s string) int64 {
	var id int64
	_, _ = fmt.Sscanf(s, "%d", &id)
	return id
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
