// Package telemetry collects in-process search metrics. All data stays
// local; nothing is reported externally.
package telemetry

import (
	"sync"
	"time"
)

// LatencyBucket is one bin of the search latency histogram.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one recorded search request.
type QueryEvent struct {
	Query       string
	Source      string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query returned nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	TotalQueries      int64                   `json:"total_queries"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	ZeroResultQueries []string                `json:"zero_result_queries,omitempty"`
	SourceCounts      map[string]int64        `json:"source_counts,omitempty"`
	Latency           map[LatencyBucket]int64 `json:"latency,omitempty"`
	Since             time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

const zeroResultCapacity = 100

// SearchMetrics aggregates query events. Safe for concurrent use.
type SearchMetrics struct {
	mu          sync.Mutex
	total       int64
	zeroCount   int64
	zeroQueries *ring[string]
	sources     map[string]int64
	latency     map[LatencyBucket]int64
	since       time.Time
}

// NewSearchMetrics creates an empty collector.
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{
		zeroQueries: newRing[string](zeroResultCapacity),
		sources:     make(map[string]int64),
		latency:     make(map[LatencyBucket]int64),
		since:       time.Now(),
	}
}

// Record folds one query event into the aggregates.
func (m *SearchMetrics) Record(e QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if e.Source != "" {
		m.sources[e.Source]++
	}
	m.latency[LatencyToBucket(e.Latency)]++
	if e.IsZeroResult() {
		m.zeroCount++
		m.zeroQueries.add(e.Query)
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *SearchMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make(map[string]int64, len(m.sources))
	for k, v := range m.sources {
		sources[k] = v
	}
	latency := make(map[LatencyBucket]int64, len(m.latency))
	for k, v := range m.latency {
		latency[k] = v
	}
	return &Snapshot{
		TotalQueries:      m.total,
		ZeroResultCount:   m.zeroCount,
		ZeroResultQueries: m.zeroQueries.items(),
		SourceCounts:      sources,
		Latency:           latency,
		Since:             m.since,
	}
}

// ring is a fixed-capacity FIFO buffer. Callers hold SearchMetrics.mu.
type ring[T any] struct {
	buf  []T
	head int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) add(item T) {
	r.buf[r.head] = item
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// items returns the buffer contents oldest first.
func (r *ring[T]) items() []T {
	if r.size == 0 {
		return nil
	}
	out := make([]T, r.size)
	if r.size < len(r.buf) {
		copy(out, r.buf[:r.size])
	} else {
		copy(out, r.buf[r.head:])
		copy(out[len(r.buf)-r.head:], r.buf[:r.head])
	}
	return out
}
