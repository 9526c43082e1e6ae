package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfusion/specfusion/internal/config"
	"github.com/specfusion/specfusion/internal/store"
)

const testToken = "test-token"

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := New(st, &config.Config{Port: 0, AdminToken: testToken})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func adminPost(t *testing.T, url, token, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(out)
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/search")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, body, "缺少查询参数")
}

func TestAdminRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := adminPost(t, srv.URL+"/api/admin/reindex", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = adminPost(t, srv.URL+"/api/admin/reindex", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBulkUpsertAndSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	payload := `{
		"source": "wecom",
		"source_name": "企业微信",
		"documents": [
			{"path": "api/send", "title": "发送应用消息", "api_path": "POST /cgi-bin/message/send",
			 "doc_type": "api_reference", "content": "# 发送应用消息\n\n调用接口发送消息。"},
			{"path": "api/token", "title": "获取access_token", "doc_type": "api_reference",
			 "content": "# 获取access_token\n\n| 60011 | no privilege | 检查可见范围 |"}
		],
		"error_codes": [
			{"code": "60011", "message": "no privilege", "doc_path": "api/token"}
		]
	}`
	resp, body := adminPost(t, srv.URL+"/api/admin/bulk-upsert", testToken, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var result BulkUpsertResponse
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, 2, result.Created)

	resp, md := get(t, srv.URL+"/api/search?q=发送应用消息")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, md, "发送应用消息")

	// Error-code query routes to the linked doc at the fixed score.
	_, md = get(t, srv.URL+"/api/search?q=60011")
	assert.Contains(t, md, "获取access_token")
	assert.Contains(t, md, "50.00")
}

func TestDocEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/doc/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, body, "文档不存在")

	docID, _, err := st.UpsertDocument(t.Context(), store.UpsertInput{
		SourceID:  "wecom",
		Path:      "api/send",
		Title:     "发送应用消息",
		DocType:   store.DocTypeAPIReference,
		Content:   "# 发送应用消息\n\nPOST /cgi-bin/message/send\n",
		SourceURL: "https://developer.work.weixin.qq.com/document/path/90236",
	})
	require.NoError(t, err)

	// Full mode prepends metadata comments.
	_, body = get(t, srv.URL+"/api/doc/"+docID)
	assert.Contains(t, body, "<!-- source: wecom -->")
	assert.Contains(t, body, "<!-- path: api/send -->")
	assert.Contains(t, body, "<!-- source_url: https://developer.work.weixin.qq.com/document/path/90236 -->")
	assert.Contains(t, body, "# 发送应用消息")

	// Summary mode ends with the full-text pointer.
	_, body = get(t, srv.URL+"/api/doc/"+docID+"?summary=true")
	assert.Contains(t, body, "/doc/"+docID)
	assert.Contains(t, body, "**方法**：POST")
}

func TestSourcesAndHealth(t *testing.T) {
	srv, st := newTestServer(t)

	_, err := st.BulkUpsert(t.Context(), "feishu", "飞书开放平台", []store.UpsertInput{
		{SourceID: "feishu", Path: "im/send", Title: "发送消息", Content: "正文"},
	})
	require.NoError(t, err)

	_, body := get(t, srv.URL+"/api/sources")
	assert.Contains(t, body, "| 飞书开放平台 | feishu | 1 |")

	resp, health := get(t, srv.URL+"/api/health")
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var h HealthResponse
	require.NoError(t, json.Unmarshal([]byte(health), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.TotalDocs)
	require.Len(t, h.Sources, 1)
	assert.Equal(t, "feishu", h.Sources[0].ID)
	require.NotNil(t, h.Search)
	assert.Zero(t, h.Search.TotalQueries)

	// A search shows up in the health metrics.
	_, _ = get(t, srv.URL+"/api/search?q=发送消息")
	_, _ = get(t, srv.URL+"/api/search?q=不存在的名字zzz")

	_, health = get(t, srv.URL+"/api/health")
	require.NoError(t, json.Unmarshal([]byte(health), &h))
	assert.Equal(t, int64(2), h.Search.TotalQueries)
}

func TestRecentClampsDays(t *testing.T) {
	srv, _ := newTestServer(t)

	_, body := get(t, srv.URL+"/api/recent?days=9999")
	assert.Contains(t, body, "最近 90 天")

	_, body = get(t, srv.URL+"/api/recent?days=0")
	assert.Contains(t, body, "最近 1 天")
}

func TestDeleteAndReindex(t *testing.T) {
	srv, st := newTestServer(t)

	docID, _, err := st.UpsertDocument(t.Context(), store.UpsertInput{
		SourceID: "wecom", Path: "api/x", Title: "待删除", Content: "正文",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/doc/"+docID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var del DeleteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&del))
	assert.True(t, del.Deleted)

	r2, body := adminPost(t, srv.URL+"/api/admin/reindex", testToken, "")
	require.Equal(t, http.StatusOK, r2.StatusCode)
	assert.Contains(t, body, "reindexed")
}

func TestBulkUpsertRejectsBadDocType(t *testing.T) {
	srv, _ := newTestServer(t)

	payload := `{"source":"wecom","documents":[{"path":"p","title":"t","content":"c","doc_type":"nonsense"}]}`
	resp, _ := adminPost(t, srv.URL+"/api/admin/bulk-upsert", testToken, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
