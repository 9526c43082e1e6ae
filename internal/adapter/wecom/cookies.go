package wecom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/specfusion/specfusion/internal/browser"
	sferrors "github.com/specfusion/specfusion/internal/errors"
)

const (
	// CookieEnvVar holds "name=value; name=value" pairs.
	CookieEnvVar = "WECOM_COOKIES"

	// healthCheckDocID is a long-lived public document (access_token 获取).
	healthCheckDocID = 91039

	// loginURL is where a human completes the QR login.
	loginURL = DefaultBaseURL + "/document/"
	// loggedInSelector appears only for authenticated sessions.
	loggedInSelector = ".login_user_info"
)

// CookieJar holds the Wecom session cookies for one run.
type CookieJar struct {
	mu      sync.Mutex
	cookies []browser.Cookie
	file    string
}

// NewCookieJar loads cookies from the environment variable and, when file
// is non-empty, from the JSON file. File cookies override env cookies of
// the same name.
func NewCookieJar(file string) (*CookieJar, error) {
	jar := &CookieJar{file: file}

	if raw := os.Getenv(CookieEnvVar); raw != "" {
		jar.cookies = parseCookieHeader(raw)
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err == nil {
			var fromFile []browser.Cookie
			if err := json.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("cookie file %s is not valid JSON: %w", file, err)
			}
			jar.merge(fromFile)
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return jar, nil
}

// Apply sets the Cookie header on an outgoing request.
func (j *CookieJar) Apply(req *http.Request) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.cookies) == 0 {
		return
	}
	pairs := make([]string, 0, len(j.cookies))
	for _, c := range j.cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	req.Header.Set("Cookie", strings.Join(pairs, "; "))
}

// Empty reports whether no cookies are loaded.
func (j *CookieJar) Empty() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies) == 0
}

func (j *CookieJar) merge(incoming []browser.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	byName := map[string]int{}
	for i, c := range j.cookies {
		byName[c.Name] = i
	}
	for _, c := range incoming {
		if i, ok := byName[c.Name]; ok {
			j.cookies[i] = c
		} else {
			j.cookies = append(j.cookies, c)
		}
	}
}

// persist writes the jar back to its file, when one is configured.
func (j *CookieJar) persist() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == "" {
		return nil
	}
	data, err := json.MarshalIndent(j.cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.file, data, 0o600)
}

func parseCookieHeader(raw string) []browser.Cookie {
	var cookies []browser.Cookie
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, browser.Cookie{Name: name, Value: value})
	}
	return cookies
}

// EnsureSession verifies the session with a health check against a known
// document; on failure it falls back to an interactive browser login when
// a driver is available.
func (a *Adapter) EnsureSession(ctx context.Context, driver browser.Driver) error {
	if err := a.healthCheck(ctx); err == nil {
		return nil
	} else if driver == nil {
		return sferrors.New(sferrors.ErrCodeSessionExpired, "session invalid and no browser available", err).
			WithSuggestion("set " + CookieEnvVar + " or run with a browser for interactive login")
	}
	return a.interactiveLogin(ctx, driver)
}

// healthCheck fetches a known doc id; an unauthenticated session gets a
// login redirect page instead of content.
func (a *Adapter) healthCheck(ctx context.Context) error {
	body, err := a.fetchCnt(ctx, fmt.Sprintf("%d", healthCheckDocID))
	if err != nil {
		return err
	}
	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return sferrors.New(sferrors.ErrCodeSessionExpired, "health check returned non-JSON", err)
	}
	if resp.Data.DocCnt.Content == "" {
		return sferrors.New(sferrors.ErrCodeSessionExpired, "health check returned empty content", nil)
	}
	return nil
}

// interactiveLogin opens a page, waits for a human to complete the QR
// login, then captures and persists the resulting cookies.
func (a *Adapter) interactiveLogin(ctx context.Context, driver browser.Driver) error {
	page, err := driver.NewPage(ctx)
	if err != nil {
		return sferrors.New(sferrors.ErrCodeLoginFailed, "failed to open browser page", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.Goto(ctx, loginURL); err != nil {
		return sferrors.New(sferrors.ErrCodeLoginFailed, "failed to open login page", err)
	}
	a.logger.Info("waiting for interactive login", "event_name", "wecom_login_wait")
	if err := page.WaitFor(ctx, loggedInSelector); err != nil {
		return sferrors.New(sferrors.ErrCodeLoginFailed, "login not completed", err)
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return sferrors.New(sferrors.ErrCodeLoginFailed, "failed to read session cookies", err)
	}
	a.cookies.merge(cookies)
	if err := a.cookies.persist(); err != nil {
		a.logger.Warn("cookie persist failed", "event_name", "wecom_cookie_persist_failed", "error", err)
	}

	a.logger.Info("interactive login complete", "event_name", "wecom_login_ok")
	return a.healthCheck(ctx)
}
