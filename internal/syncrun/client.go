package syncrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specfusion/specfusion/internal/server"
)

// clientTimeout bounds one admin call; bulk bodies can be large.
const clientTimeout = 60 * time.Second

// Client talks to the admin API of a running SpecFusion server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an admin client for the given server base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

// BulkUpsert submits one document batch.
func (c *Client) BulkUpsert(ctx context.Context, req server.BulkUpsertRequest) (*server.BulkUpsertResponse, error) {
	var resp server.BulkUpsertResponse
	if err := c.post(ctx, "/api/admin/bulk-upsert", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reindex triggers an FTS rebuild.
func (c *Client) Reindex(ctx context.Context) (int, error) {
	var resp server.ReindexResponse
	if err := c.post(ctx, "/api/admin/reindex", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Reindexed, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("admin call %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("admin call %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
