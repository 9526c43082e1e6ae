package adapter

import (
	"context"
	"math/rand"
	"time"
)

// RateLimiter paces upstream requests. Implementations are per-adapter
// instance and reset per run.
type RateLimiter interface {
	// Wait blocks for the limiter's current delay or until ctx is done.
	Wait(ctx context.Context) error
}

// FixedDelay waits a base delay plus uniform jitter before each request.
type FixedDelay struct {
	Base   time.Duration
	Jitter time.Duration
}

// Wait implements RateLimiter.
func (f *FixedDelay) Wait(ctx context.Context) error {
	delay := f.Base
	if f.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(f.Jitter)))
	}
	return sleep(ctx, delay)
}

// AdaptiveStepper slows down as the per-run request count grows:
// 1200ms for the first 100 requests, 1800ms through 200, then 2500ms.
// Used by the Wecom adapter.
type AdaptiveStepper struct {
	count int
}

// Adaptive step thresholds.
const (
	adaptiveFastCount = 100
	adaptiveMidCount  = 200
	adaptiveFastDelay = 1200 * time.Millisecond
	adaptiveMidDelay  = 1800 * time.Millisecond
	adaptiveSlowDelay = 2500 * time.Millisecond
)

// Wait implements RateLimiter.
func (a *AdaptiveStepper) Wait(ctx context.Context) error {
	a.count++
	return sleep(ctx, a.delay())
}

func (a *AdaptiveStepper) delay() time.Duration {
	switch {
	case a.count <= adaptiveFastCount:
		return adaptiveFastDelay
	case a.count <= adaptiveMidCount:
		return adaptiveMidDelay
	default:
		return adaptiveSlowDelay
	}
}

// Reset clears the per-run request counter.
func (a *AdaptiveStepper) Reset() {
	a.count = 0
}

// BreakEvery wraps a limiter and inserts a long break every n requests.
// The Taobao adapter takes a 60-second break every 100 requests.
type BreakEvery struct {
	Inner RateLimiter
	N     int
	Break time.Duration

	count int
}

// Wait implements RateLimiter.
func (b *BreakEvery) Wait(ctx context.Context) error {
	b.count++
	if b.N > 0 && b.count%b.N == 0 {
		if err := sleep(ctx, b.Break); err != nil {
			return err
		}
	}
	return b.Inner.Wait(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
