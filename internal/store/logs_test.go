package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLogLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSyncLog(ctx, "wecom")
	require.NoError(t, err)

	// No success row yet: the running one does not count.
	last, err := s.LastSuccessfulSyncLog(ctx, "wecom")
	require.NoError(t, err)
	assert.Nil(t, last)

	err = s.UpdateSyncLog(ctx, id, SyncStatusSuccess, SyncCounts{Created: 3, Unchanged: 5})
	require.NoError(t, err)

	last, err = s.LastSuccessfulSyncLog(ctx, "wecom")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 3, last.Created)
	assert.Equal(t, 5, last.Unchanged)
	assert.False(t, last.FinishedAt.IsZero())
}

func TestLogSearchAndTrim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.LogSearch(ctx, "发送消息", "wecom", 3, 27.5, 12))
	}
	require.NoError(t, s.LogSearch(ctx, "不存在的词", "", 0, 0, 4))

	count, err := s.SearchLogCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	removed, err := s.TrimSearchLogs(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, removed)
}

func TestErrorCodeUpsertAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	codes := []ErrorCode{
		{Code: "60011", Message: "no privilege to access/modify contact/party/agent"},
		{Code: "40013", Message: "invalid corpid", Description: "corpid 不合法"},
	}
	require.NoError(t, s.UpsertErrorCodes(ctx, "wecom", codes))

	ec, err := s.FindErrorCode(ctx, "60011")
	require.NoError(t, err)
	require.NotNil(t, ec)
	assert.Equal(t, "wecom", ec.SourceID)
	assert.Equal(t, "no privilege to access/modify contact/party/agent", ec.Message)

	// Conflict replaces message/description/doc_id.
	require.NoError(t, s.UpsertErrorCodes(ctx, "wecom", []ErrorCode{
		{Code: "60011", Message: "updated", DocID: "wecom_abcabcabcabc"},
	}))
	ec, err = s.FindErrorCode(ctx, "60011")
	require.NoError(t, err)
	assert.Equal(t, "updated", ec.Message)
	assert.Equal(t, "wecom_abcabcabcabc", ec.DocID)

	missing, err := s.FindErrorCode(ctx, "99999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
