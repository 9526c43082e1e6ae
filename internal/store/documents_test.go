package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/specfusion/specfusion/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleInput() UpsertInput {
	return UpsertInput{
		SourceID:    "wecom",
		Path:        "090-message/001-send",
		Title:       "发送应用消息",
		APIPath:     "POST /cgi-bin/message/send",
		DevMode:     DevModeInternal,
		DocType:     DocTypeAPIReference,
		Content:     "# 发送应用消息\n\n调用 /cgi-bin/message/send 发送消息。",
		SourceURL:   "https://developer.work.weixin.qq.com/document/path/90236",
		LastUpdated: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestUpsertCreatedThenUnchanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, action, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.Equal(t, DocID("wecom", "090-message/001-send"), id)

	id2, action, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, action)
	assert.Equal(t, id, id2)
}

func TestUpsertUpdatedRollsHashForward(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := sampleInput()
	_, _, err := s.UpsertDocument(ctx, input)
	require.NoError(t, err)
	firstHash := HashContent(input.Content)

	input.Content = input.Content + "\n\n新增段落。"
	id, action, err := s.UpsertDocument(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, firstHash, doc.PrevContentHash)
	assert.Equal(t, HashContent(input.Content), doc.ContentHash)
}

func TestGetDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := sampleInput()
	id, _, err := s.UpsertDocument(ctx, input)
	require.NoError(t, err)

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, input.SourceID, doc.SourceID)
	assert.Equal(t, input.Path, doc.Path)
	assert.Equal(t, 2, doc.PathDepth)
	assert.Equal(t, input.Title, doc.Title)
	assert.Equal(t, input.APIPath, doc.APIPath)
	assert.Equal(t, input.DevMode, doc.DevMode)
	assert.Equal(t, input.DocType, doc.DocType)
	assert.Equal(t, input.Content, doc.Content)
	assert.Equal(t, HashContent(input.Content), doc.ContentHash)
	assert.Empty(t, doc.PrevContentHash)
	assert.Equal(t, input.SourceURL, doc.SourceURL)
	assert.Equal(t, input.LastUpdated, doc.LastUpdated)
	assert.False(t, doc.SyncedAt.IsZero())
	assert.NotEmpty(t, doc.TokenizedTitle)
	assert.NotEmpty(t, doc.TokenizedContent)
}

func TestDeleteThenRecreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)

	deleted, err := s.DeleteDocument(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, action, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)

	deleted, err := s.DeleteDocument(context.Background(), "wecom_000000000000")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDevModeClearedForNonWecom(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := sampleInput()
	input.SourceID = "feishu"
	input.DevMode = DevModeThirdParty

	id, _, err := s.UpsertDocument(ctx, input)
	require.NoError(t, err)

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, doc.DevMode)
}

func TestUpsertRejectsUnknownDocType(t *testing.T) {
	s := openTestStore(t)

	input := sampleInput()
	input.DocType = "tutorial"

	_, _, err := s.UpsertDocument(context.Background(), input)
	assert.ErrorIs(t, err, sferrors.New(sferrors.ErrCodeInvalidDocType, "", nil))
}

func TestBulkUpsertCountsAndDocCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleInput()
	b := sampleInput()
	b.Path = "090-message/002-recall"
	b.Title = "撤回应用消息"

	result, err := s.BulkUpsert(ctx, "wecom", "企业微信", []UpsertInput{a, b})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Created: 2}, result)

	// Second run: one unchanged, one updated.
	b.Content = b.Content + " 更新"
	result, err = s.BulkUpsert(ctx, "wecom", "企业微信", []UpsertInput{a, b})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Updated: 1, Unchanged: 1}, result)

	src, err := s.GetSource(ctx, "wecom")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, "企业微信", src.Name)
	assert.Equal(t, 2, src.DocCount)
}

func TestBulkUpsertAtomicOnMidBatchError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	good := sampleInput()
	bad := sampleInput()
	bad.Path = "090-message/003-broken"
	bad.Title = "" // forces a mid-batch validation error

	_, err := s.BulkUpsert(ctx, "wecom", "", []UpsertInput{good, bad})
	require.Error(t, err)
	assert.Equal(t, sferrors.CategoryIntegrity, sferrors.CategoryOf(err))

	// Nothing from the failed batch is visible.
	docs, err := s.DocumentsBySource(ctx, "wecom")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFTSParityAfterRebuild(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inputs := []UpsertInput{sampleInput()}
	second := sampleInput()
	second.Path = "100-contacts/001-list"
	second.Title = "获取部门成员"
	inputs = append(inputs, second)

	_, err := s.BulkUpsert(ctx, "wecom", "", inputs)
	require.NoError(t, err)

	n, err := s.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ftsRows, err := s.FTSRowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, ftsRows)
}

func TestSearchFTSFindsTokenizedContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)

	hits, err := s.SearchFTS(ctx, "消息", SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "发送应用消息", hits[0].Doc.Title)
	assert.Negative(t, hits[0].Rank)
}

func TestSearchFTSRejectsMalformedMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)

	_, err = s.SearchFTS(ctx, `"unbalanced`, SearchFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sferrors.New(sferrors.ErrCodeMatchSyntax, "", nil))
}

func TestSearchAPIPathPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertDocument(ctx, sampleInput())
	require.NoError(t, err)

	docs, err := s.SearchAPIPath(ctx, "/cgi-bin/message", SearchFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "发送应用消息", docs[0].Title)
}

func TestCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inputs := []UpsertInput{sampleInput()}
	second := sampleInput()
	second.Path = "100-contacts/001-list"
	second.Title = "获取部门成员"
	inputs = append(inputs, second)
	_, err := s.BulkUpsert(ctx, "wecom", "", inputs)
	require.NoError(t, err)

	cats, err := s.Categories(ctx, "wecom")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "090-message", cats[0].Category)
	assert.Equal(t, "100-contacts", cats[1].Category)
	assert.Equal(t, 1, cats[0].Count)
}

func TestRecentDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fresh := sampleInput()
	fresh.LastUpdated = time.Now().UTC().AddDate(0, 0, -2)
	stale := sampleInput()
	stale.Path = "100-contacts/001-list"
	stale.Title = "获取部门成员"
	stale.LastUpdated = time.Now().UTC().AddDate(0, 0, -200)

	_, err := s.BulkUpsert(ctx, "wecom", "", []UpsertInput{fresh, stale})
	require.NoError(t, err)

	docs, err := s.RecentDocuments(ctx, "", 7, 20)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "发送应用消息", docs[0].Title)
}
