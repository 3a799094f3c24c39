/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestNewBucketValidation(t *testing.T) {
	_, err := NewBucket(0, 1.0, nil)
	require.Error(t, err)

	_, err = NewBucket(-1, 1.0, nil)
	require.Error(t, err)

	_, err = NewBucket(5, 0, nil)
	require.Error(t, err)

	_, err = NewBucket(5, -1.5, nil)
	require.Error(t, err)
}

func TestBucketStartsFull(t *testing.T) {
	b, err := NewBucket(5, 1.0, nil)
	require.NoError(t, err)
	defer b.Destroy()

	stats := b.Stats()
	require.Equal(t, 5, stats.MaxTokens)
	require.Equal(t, 1.0, stats.RefillRatePerSecond)
	require.InDelta(t, 5.0, stats.Tokens, 0.1)
	require.Equal(t, 0, stats.WaitingCount)
}

func TestBucketAcquireImmediate(t *testing.T) {
	b, err := NewBucket(5, 0.1, nil)
	require.NoError(t, err)
	defer b.Destroy()

	for i := 0; i < 5; i++ {
		start := time.Now()
		require.NoError(t, b.Acquire(context.Background()))
		require.Less(t, time.Since(start), 100*time.Millisecond)
	}
	require.Less(t, b.Stats().Tokens, 1.0)
}

func TestBucketAcquireWaits(t *testing.T) {
	b, err := NewBucket(1, 20.0, nil)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		require.NoError(t, b.Acquire(context.Background()))
		close(acquired)
	}()

	require.Eventually(t, func() bool {
		return b.Stats().WaitingCount == 1
	}, time.Second, time.Millisecond)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not granted a token in time")
	}
	require.Equal(t, 0, b.Stats().WaitingCount)
}

func TestBucketRefillIsCapped(t *testing.T) {
	b, err := NewBucket(2, 1000.0, nil)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.Acquire(context.Background()))

	time.Sleep(50 * time.Millisecond)
	require.InDelta(t, 2.0, b.Stats().Tokens, 0.001)
}

func TestBucketFIFOOrder(t *testing.T) {
	b, err := NewBucket(1, 50.0, nil)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))

	const waitersNum = 5
	var mu sync.Mutex
	var grantOrder []int
	ready := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < waitersNum; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			// Stagger arrivals so the queue order is deterministic.
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			require.NoError(t, b.Acquire(context.Background()))
			mu.Lock()
			grantOrder = append(grantOrder, i)
			mu.Unlock()
		}()
	}
	close(ready)
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4}, grantOrder)
}

func TestBucketAcquireContextCancellation(t *testing.T) {
	b, err := NewBucket(1, 0.1, nil)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, b.Stats().WaitingCount)
}

func TestBucketDestroyReleasesWaiters(t *testing.T) {
	b, err := NewBucket(1, 0.1, nil)
	require.NoError(t, err)

	require.NoError(t, b.Acquire(context.Background()))

	const waitersNum = 3
	released := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for i := 0; i < waitersNum; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, b.Acquire(context.Background()))
			released.Inc()
		}()
	}

	require.Eventually(t, func() bool {
		return b.Stats().WaitingCount == waitersNum
	}, time.Second, time.Millisecond)

	b.Destroy()
	wg.Wait()
	require.Equal(t, int32(waitersNum), released.Load())

	// Acquire after Destroy returns immediately without a token.
	require.NoError(t, b.Acquire(context.Background()))

	// Destroy is idempotent.
	b.Destroy()
}

func TestBucketWaitDurationMatchesRefillRate(t *testing.T) {
	b, err := NewBucket(2, 1.8, nil)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.Acquire(context.Background()))

	// The bucket is empty, so the next token arrives after 1/1.8 ≈ 0.56s.
	start := time.Now()
	require.NoError(t, b.Acquire(context.Background()))
	elapsed := time.Since(start)
	require.Greater(t, elapsed, 300*time.Millisecond)
	require.Less(t, elapsed, 1500*time.Millisecond)
}

type testMetricsCollector struct {
	mu            sync.Mutex
	waitDurations []time.Duration
}

func (c *testMetricsCollector) IncGrants(bool)      {}
func (c *testMetricsCollector) SetWaitingCount(int) {}
func (c *testMetricsCollector) IncDestroyReleases() {}

func (c *testMetricsCollector) ObserveWaitTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitDurations = append(c.waitDurations, d)
}

func (c *testMetricsCollector) WaitDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waitDurations...)
}

func TestBucketObservesWaitTime(t *testing.T) {
	mc := &testMetricsCollector{}
	b, err := NewBucket(1, 50.0, mc)
	require.NoError(t, err)
	defer b.Destroy()

	// The fast path grants without queueing, so no wait time is observed.
	require.NoError(t, b.Acquire(context.Background()))
	require.Empty(t, mc.WaitDurations())

	require.NoError(t, b.Acquire(context.Background()))
	durations := mc.WaitDurations()
	require.Len(t, durations, 1)
	require.Positive(t, durations[0])
}

func TestBucketPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	b, err := NewBucket(2, 100.0, pm)
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.Acquire(context.Background()))

	require.Equal(t, 2.0, testutil.ToFloat64(pm.GrantsTotal.WithLabelValues("no")))
	require.Equal(t, 1.0, testutil.ToFloat64(pm.GrantsTotal.WithLabelValues("yes")))
	require.Equal(t, 0.0, testutil.ToFloat64(pm.WaitingAmount))
}
