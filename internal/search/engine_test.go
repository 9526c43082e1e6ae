package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfusion/specfusion/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewEngine(s), s
}

func TestKeywordRankingPrefersExactFreshAPIReference(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	a := store.UpsertInput{
		SourceID: "wecom", Path: "090-message/010-app/001-send",
		Title:   "发送应用消息",
		DocType: store.DocTypeAPIReference,
		Content: "调用本接口发送消息到指定成员。支持文本、图片等发送消息类型。",
		LastUpdated: time.Now().UTC().AddDate(0, 0, -3),
	}
	b := store.UpsertInput{
		SourceID: "wecom", Path: "090-message/020-types/001-overview/010-data/001-format",
		Title:   "消息类型与数据格式",
		DocType: store.DocTypeGuide,
		Content: "本文介绍各种消息的数据格式，以及如何发送。",
		LastUpdated: time.Now().UTC().AddDate(0, 0, -200),
	}
	_, err := s.BulkUpsert(ctx, "wecom", "", []store.UpsertInput{a, b})
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "发送应用消息", Options{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	first, second := resp.Results[0], resp.Results[1]
	assert.Equal(t, "发送应用消息", first.Doc.Title)
	assert.Greater(t, first.Score, second.Score)

	// A carries the full-title (+20), api_reference (+3), and ≤30 day (+3)
	// bonuses that B lacks; B additionally pays a deeper path penalty.
	// Even ignoring BM25, the fixed-bonus gap alone exceeds 20.
	assert.Greater(t, first.Score-second.Score, 20.0)
}

func TestErrorCodeLookupWithLinkedDoc(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	docID, _, err := s.UpsertDocument(ctx, store.UpsertInput{
		SourceID: "wecom", Path: "900-errors/001-global",
		Title:   "全局错误码",
		Content: "| 60011 | 无权限操作指定的应用 | 检查应用可见范围 |",
		DocType: store.DocTypeErrorCode,
	})
	require.NoError(t, err)
	require.NoError(t, s.UpsertErrorCodes(ctx, "wecom", []store.ErrorCode{
		{Code: "60011", Message: "no privilege to access/modify contact/party/agent", DocID: docID},
	}))

	for _, q := range []string{"60011", "errcode 60011"} {
		resp, err := engine.Search(ctx, q, Options{})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1, "query %q", q)
		assert.Equal(t, docID, resp.Results[0].Doc.ID)
		assert.Equal(t, 50.0, resp.Results[0].Score)
	}
}

func TestErrorCodeZeroResultDiagnostic(t *testing.T) {
	engine, _ := newTestEngine(t)

	resp, err := engine.Search(context.Background(), "99999999", Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	body := FormatMarkdown(resp)
	assert.Contains(t, body, "建议")
}

func TestAPIPathRouting(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	_, _, err := s.UpsertDocument(ctx, store.UpsertInput{
		SourceID: "wecom", Path: "090-message/001-send",
		Title:   "发送应用消息",
		APIPath: "/cgi-bin/message/send",
		Content: "发送消息接口说明。",
	})
	require.NoError(t, err)

	// Exact path and prefix both route through api_path, never FTS.
	for _, q := range []string{"/cgi-bin/message/send", "/cgi-bin/message"} {
		assert.Equal(t, KindAPIPath, Classify(q))

		resp, err := engine.Search(ctx, q, Options{})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1, "query %q", q)
		assert.Equal(t, "发送应用消息", resp.Results[0].Doc.Title)
		assert.Equal(t, 50.0, resp.Results[0].Score)
	}
}

func TestDedupAcrossDevModes(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	modes := []string{store.DevModeInternal, store.DevModeThirdParty, store.DevModeServiceProvider}
	var inputs []store.UpsertInput
	for _, mode := range modes {
		inputs = append(inputs, store.UpsertInput{
			SourceID: "wecom",
			Path:     "010-auth/" + mode + "/001-token",
			Title:    "获取access_token",
			APIPath:  "GET /cgi-bin/gettoken",
			DevMode:  mode,
			Content:  "通过 corpid 和 corpsecret 获取 access_token。",
		})
	}
	_, err := s.BulkUpsert(ctx, "wecom", "", inputs)
	require.NoError(t, err)

	// No mode filter: collapsed to one result carrying the other modes.
	resp, err := engine.Search(ctx, "获取access_token", Options{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	kept := resp.Results[0]
	assert.Len(t, kept.OtherModes, 2)
	assert.NotContains(t, kept.OtherModes, kept.Doc.DevMode)

	// Mode filter: no dedup, exactly the filtered doc.
	resp, err = engine.Search(ctx, "获取access_token", Options{Mode: store.DevModeThirdParty})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, store.DevModeThirdParty, resp.Results[0].Doc.DevMode)
	assert.Empty(t, resp.Results[0].OtherModes)
}

func TestStopWordOnlyQueryYieldsZeroAndLogs(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	before, err := s.SearchLogCount(ctx)
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "的 了 是", Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	after, err := s.SearchLogCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestSearchLimitTruncationKeepsTotal(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	var inputs []store.UpsertInput
	for _, suffix := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		inputs = append(inputs, store.UpsertInput{
			SourceID: "feishu",
			Path:     "docs/" + suffix,
			Title:    "多维表格" + suffix,
			Content:  "多维表格接口文档 " + suffix,
		})
	}
	_, err := s.BulkUpsert(ctx, "feishu", "", inputs)
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "多维表格", Options{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 7, resp.Total)
}

func TestSourceFilter(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	_, err := s.BulkUpsert(ctx, "wecom", "", []store.UpsertInput{{
		SourceID: "wecom", Path: "a", Title: "消息概述", Content: "消息相关说明",
	}})
	require.NoError(t, err)
	_, err = s.BulkUpsert(ctx, "feishu", "", []store.UpsertInput{{
		SourceID: "feishu", Path: "a", Title: "消息概述", Content: "消息相关说明",
	}})
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "消息", Options{Source: "feishu"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "feishu", r.Doc.SourceID)
	}
}

func TestFormatMarkdownHeader(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	_, _, err := s.UpsertDocument(ctx, store.UpsertInput{
		SourceID: "wecom", Path: "090-message/001-send",
		Title: "发送应用消息", APIPath: "POST /cgi-bin/message/send",
		Content: "发送消息接口说明。",
	})
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "发送应用消息", Options{})
	require.NoError(t, err)

	body := FormatMarkdown(resp)
	assert.Contains(t, body, "## 搜索结果：发送应用消息（来源：全部，共 1 条，耗时 ")
	assert.Contains(t, body, "### 1. 发送应用消息（评分：")
	assert.Contains(t, body, "`POST /cgi-bin/message/send`")
	assert.Contains(t, body, "文档ID：")
}
