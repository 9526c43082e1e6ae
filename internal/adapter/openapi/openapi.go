// Package openapi ingests OpenAPI 3 and Swagger 2.0 specifications,
// rendering each operation to one Markdown document.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specfusion/specfusion/internal/adapter"
	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/store"
)

// methods in canonical order; specs key operations lowercase.
var httpMethods = []string{"get", "post", "put", "patch", "delete", "head", "options"}

// Adapter serves one spec URL. The spec is loaded once per run.
type Adapter struct {
	source  string
	name    string
	specURL string
	client  *http.Client

	spec map[string]any
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates an OpenAPI adapter for one spec URL.
func New(source, name, specURL string) *Adapter {
	return &Adapter{
		source:  source,
		name:    name,
		specURL: specURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Source implements adapter.Adapter.
func (a *Adapter) Source() string { return a.source }

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return a.name }

// FetchCatalog iterates paths × methods and emits one entry per operation.
func (a *Adapter) FetchCatalog(ctx context.Context) ([]adapter.DocEntry, error) {
	if err := a.loadSpec(ctx); err != nil {
		return nil, err
	}

	paths, _ := a.spec["paths"].(map[string]any)
	routes := make([]string, 0, len(paths))
	for route := range paths {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	var entries []adapter.DocEntry
	for _, route := range routes {
		item, _ := paths[route].(map[string]any)
		for _, method := range httpMethods {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			upper := strings.ToUpper(method)

			tag := "default"
			if tags, _ := op["tags"].([]any); len(tags) > 0 {
				if t, ok := tags[0].(string); ok && t != "" {
					tag = t
				}
			}

			title, _ := op["summary"].(string)
			if title == "" {
				title = upper + " " + route
			}

			platformID, _ := op["operationId"].(string)
			if platformID == "" {
				platformID = method + "-" + route
			}

			entries = append(entries, adapter.DocEntry{
				Path:       tag + "/" + upper + " " + route,
				Title:      title,
				APIPath:    upper + " " + route,
				DocType:    store.DocTypeAPIReference,
				SourceURL:  a.specURL,
				PlatformID: platformID,
			})
		}
	}
	return entries, nil
}

// FetchContent renders one operation to Markdown. Non-2xx, non-default
// response statuses are also emitted as error-code entries.
func (a *Adapter) FetchContent(ctx context.Context, entry adapter.DocEntry) (*adapter.DocContent, error) {
	if err := a.loadSpec(ctx); err != nil {
		return nil, err
	}

	method, route, ok := splitAPIPath(entry.APIPath)
	if !ok {
		return nil, fmt.Errorf("malformed api path %q", entry.APIPath)
	}

	paths, _ := a.spec["paths"].(map[string]any)
	item, _ := paths[route].(map[string]any)
	op, ok := item[strings.ToLower(method)].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("operation %s %s not in spec", method, route)
	}

	r := &renderer{root: a.spec}
	markdown := r.renderOperation(entry.Title, method, route, op)

	var codes []store.ErrorCode
	if responses, _ := op["responses"].(map[string]any); responses != nil {
		statuses := make([]string, 0, len(responses))
		for status := range responses {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			if status == "default" || strings.HasPrefix(status, "2") {
				continue
			}
			desc := ""
			if resp, _ := responses[status].(map[string]any); resp != nil {
				desc, _ = resp["description"].(string)
			}
			codes = append(codes, store.ErrorCode{Code: status, Description: desc})
		}
	}

	return &adapter.DocContent{
		Markdown:   markdown,
		APIPath:    method + " " + route,
		ErrorCodes: codes,
	}, nil
}

// DetectUpdates delegates to FetchCatalog; hash comparison downstream
// skips unchanged operations.
func (a *Adapter) DetectUpdates(ctx context.Context, _ time.Time) ([]adapter.DocEntry, error) {
	return a.FetchCatalog(ctx)
}

// loadSpec fetches and parses the spec once per run: JSON first, YAML on
// failure, with a Swagger 2.0 compatibility shim.
func (a *Adapter) loadSpec(ctx context.Context) error {
	if a.spec != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.specURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch spec: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spec fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read spec: %w", err)
	}

	spec, err := Parse(body)
	if err != nil {
		return err
	}
	a.spec = spec
	return nil
}

// Parse decodes a spec document, trying JSON then YAML, and applies the
// Swagger 2.0 shim when needed.
func Parse(body []byte) (map[string]any, error) {
	var spec map[string]any
	if err := json.Unmarshal(body, &spec); err != nil {
		if err := yaml.Unmarshal(body, &spec); err != nil {
			return nil, sferrors.New(sferrors.ErrCodeBadSpec, "spec is neither JSON nor YAML", err)
		}
	}

	if swagger, _ := spec["swagger"].(string); swagger == "2.0" {
		spec = convertSwagger2(spec)
	}
	return spec, nil
}

func splitAPIPath(apiPath string) (method, route string, ok bool) {
	parts := strings.SplitN(apiPath, " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
