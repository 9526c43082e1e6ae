package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

const (
	taobaoBaseURL = "https://open.taobao.com"

	// sessionTTL forces a token refresh even without an invalidation signal.
	sessionTTL = 15 * time.Minute

	antiBotMaxRetries = 2
)

// antiBotBackoff is the initial penalty; doubled on the second offense.
// Var so tests can shrink it.
var antiBotBackoff = 5 * time.Minute

// Taobao syncs the 淘宝开放平台 docs. The upstream actively challenges
// scrapers, so every response goes through the anti-bot classifier.
type Taobao struct {
	baseURL string
	client  *http.Client
	limiter adapter.RateLimiter

	mu           sync.Mutex
	sessionToken string
	sessionSince time.Time
	offenses     int
}

var _ adapter.Adapter = (*Taobao)(nil)

// NewTaobao creates the adapter with the documented pacing: ~2 s base
// with 1 s jitter and a 60-second break every 100 requests.
func NewTaobao() *Taobao {
	return NewTaobaoWithBase(taobaoBaseURL)
}

// NewTaobaoWithBase is the test constructor.
func NewTaobaoWithBase(baseURL string) *Taobao {
	return &Taobao{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: &adapter.BreakEvery{
			Inner: &adapter.FixedDelay{Base: 2 * time.Second, Jitter: time.Second},
			N:     100,
			Break: time.Minute,
		},
	}
}

func (t *Taobao) Source() string { return "taobao" }
func (t *Taobao) Name() string   { return "淘宝开放平台" }

// FetchCatalog lists the API doc catalog.
func (t *Taobao) FetchCatalog(ctx context.Context) ([]adapter.DocEntry, error) {
	body, err := t.fetch(ctx, t.baseURL+"/api/doc/catalog")
	if err != nil {
		return nil, err
	}
	var payload catalogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "taobao catalog is not JSON", err)
	}

	entries := make([]adapter.DocEntry, 0, len(payload.Data.Docs))
	for _, doc := range payload.Data.Docs {
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

// FetchContent fetches one API doc through the defended path.
func (t *Taobao) FetchContent(ctx context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := t.fetch(ctx, fmt.Sprintf("%s/api/doc/detail?id=%s", t.baseURL, entry.PlatformID))
	if err != nil {
		return nil, err
	}
	var payload contentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "taobao content is not JSON", err)
	}

	markdown := payload.Data.Content
	if strings.Contains(markdown, "<") {
		markdown, err = adapter.HTMLToMarkdown(markdown)
		if err != nil {
			return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "taobao content HTML unparseable", err)
		}
	}

	return &adapter.DocContent{
		Markdown:   markdown,
		ErrorCodes: adapter.ExtractErrorCodes(markdown),
	}, nil
}

// DetectUpdates delegates to FetchCatalog; the upstream exposes no
// reliable revision dates.
func (t *Taobao) DetectUpdates(ctx context.Context, _ time.Time) ([]adapter.DocEntry, error) {
	return t.FetchCatalog(ctx)
}

// fetch performs one request with anti-bot classification: back off,
// refresh the session, retry up to twice, then surface a fatal error.
func (t *Taobao) fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := t.doRequest(ctx, url)
		if err != nil {
			return nil, err
		}
		if !IsAntiBot(body) {
			return body, nil
		}

		if attempt >= antiBotMaxRetries {
			return nil, sferrors.New(sferrors.ErrCodeAntiBotFatal,
				fmt.Sprintf("anti-bot challenge persisted after %d retries: %s", antiBotMaxRetries, url), nil).
				WithSuggestion("wait before re-running; repeated offenses extend the penalty window")
		}

		backoff := t.recordOffense()
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		if err := t.refreshSession(ctx); err != nil {
			return nil, err
		}
	}
}

// recordOffense returns the current penalty: the base backoff, doubled
// from the second offense on.
func (t *Taobao) recordOffense() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offenses++
	if t.offenses >= 2 {
		return 2 * antiBotBackoff
	}
	return antiBotBackoff
}

// ensureSession refreshes the token when stale; the mutex keeps a single
// refresh in flight per adapter instance.
func (t *Taobao) ensureSession(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionToken != "" && time.Since(t.sessionSince) < sessionTTL {
		return t.sessionToken, nil
	}
	return t.refreshSessionLocked(ctx)
}

func (t *Taobao) refreshSession(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.refreshSessionLocked(ctx)
	return err
}

func (t *Taobao) refreshSessionLocked(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/doc/token", nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", sferrors.New(sferrors.ErrCodeSessionExpired, "session refresh failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", sferrors.New(sferrors.ErrCodeSessionExpired, "session refresh returned non-JSON", err)
	}
	t.sessionToken = payload.Token
	t.sessionSince = time.Now()
	return t.sessionToken, nil
}

func (t *Taobao) doRequest(ctx context.Context, url string) ([]byte, error) {
	token, err := t.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, sferrors.New(sferrors.ErrCodeBadUpstream, "taobao fetch failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// IsAntiBot classifies a Taobao response body as an anti-bot challenge:
// known challenge markers, punish/x5sec redirect URLs, captcha actions,
// or any body that is not a JSON object.
func IsAntiBot(body []byte) bool {
	s := string(body)
	for _, marker := range []string{"RGV587_ERROR", "FAIL_SYS_USER_VALIDATE", "action=captcha"} {
		if strings.Contains(s, marker) {
			return true
		}
	}

	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return true
	}
	if url, _ := probe["url"].(string); url != "" {
		if strings.Contains(url, "punish") || strings.Contains(url, "x5sec") {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
