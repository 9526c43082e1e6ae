package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{80 * time.Millisecond, BucketP100},
		{200 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %v", tt.latency)
	}
}

func TestSearchMetrics_Record(t *testing.T) {
	m := NewSearchMetrics()

	m.Record(QueryEvent{Query: "获取access token", Source: "wecom", ResultCount: 5, Latency: 8 * time.Millisecond})
	m.Record(QueryEvent{Query: "发送消息", Source: "wecom", ResultCount: 3, Latency: 60 * time.Millisecond})
	m.Record(QueryEvent{Query: "不存在的接口", ResultCount: 0, Latency: 12 * time.Millisecond})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"不存在的接口"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(2), snap.SourceCounts["wecom"])
	assert.Equal(t, int64(1), snap.Latency[BucketP10])
	assert.Equal(t, int64(1), snap.Latency[BucketP50])
	assert.Equal(t, int64(1), snap.Latency[BucketP100])
	assert.InDelta(t, 33.3, snap.ZeroResultPercentage(), 0.1)
}

func TestSearchMetrics_ZeroResultRing(t *testing.T) {
	m := NewSearchMetrics()
	for i := 0; i < zeroResultCapacity+10; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("q%d", i), ResultCount: 0})
	}

	snap := m.Snapshot()
	require.Len(t, snap.ZeroResultQueries, zeroResultCapacity)
	// Oldest entries are evicted first.
	assert.Equal(t, "q10", snap.ZeroResultQueries[0])
	assert.Equal(t, fmt.Sprintf("q%d", zeroResultCapacity+9), snap.ZeroResultQueries[len(snap.ZeroResultQueries)-1])
	assert.Equal(t, int64(zeroResultCapacity+10), snap.ZeroResultCount)
}

func TestSearchMetrics_Concurrent(t *testing.T) {
	m := NewSearchMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: "q", Source: "feishu", ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(1000), snap.SourceCounts["feishu"])
}

func TestSnapshot_ZeroResultPercentage_Empty(t *testing.T) {
	snap := NewSearchMetrics().Snapshot()
	assert.Zero(t, snap.ZeroResultPercentage())
	assert.Empty(t, snap.ZeroResultQueries)
}
