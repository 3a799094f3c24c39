/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// MinWakeupDelay is the lower bound for the refill wake-up timer.
// It prevents busy-looping when the token shortfall is very small.
const MinWakeupDelay = 10 * time.Millisecond

type waiter struct {
	ch         chan struct{}
	enqueuedAt time.Time
	granted    bool
}

// Bucket is a token-bucket rate limiter with a FIFO waiting queue.
//
// Tokens accrue continuously at a fixed rate up to the bucket capacity and are
// recomputed lazily on every access, so an idle bucket costs nothing. Waiters
// are granted tokens strictly in arrival order: no caller can be starved by
// later arrivals.
type Bucket struct {
	maxTokens  int
	refillRate float64 // tokens per second

	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
	waiters     *list.List // list of *waiter
	wakeupTimer *time.Timer
	timerActive bool
	destroyed   bool

	metricsCollector MetricsCollector
}

// NewBucket creates a new Bucket with the provided capacity and refill rate.
// The bucket starts full. Metrics collector may be nil, in this case metrics will be disabled.
func NewBucket(maxTokens int, refillRatePerSecond float64, metricsCollector MetricsCollector) (*Bucket, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("maxTokens must be greater than 0")
	}
	if refillRatePerSecond <= 0 {
		return nil, fmt.Errorf("refillRatePerSecond must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &Bucket{
		maxTokens:        maxTokens,
		refillRate:       refillRatePerSecond,
		tokens:           float64(maxTokens),
		lastRefill:       time.Now(),
		waiters:          list.New(),
		metricsCollector: metricsCollector,
	}, nil
}

// Acquire blocks until a token is granted and returns nil.
//
// If a token is available, it is consumed synchronously without waiting.
// Otherwise the caller joins the tail of the FIFO wait queue and is woken up
// once enough tokens have refilled.
//
// Acquire never rejects: after Destroy it returns nil immediately without
// consuming a token, and callers must treat that as "proceed without a token".
// The only error it can return is ctx.Err() when the provided context is done
// before a token is granted.
func (b *Bucket) Acquire(ctx context.Context) error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.refill()
	// The fast path is taken only when the queue is empty, otherwise a
	// newcomer could steal a freshly refilled token from the head waiter.
	if b.waiters.Len() == 0 && b.tokens >= 1 {
		b.tokens--
		b.metricsCollector.IncGrants(false)
		b.mu.Unlock()
		return nil
	}

	w := &waiter{ch: make(chan struct{}), enqueuedAt: time.Now()}
	elem := b.waiters.PushBack(w)
	b.metricsCollector.SetWaitingCount(b.waiters.Len())
	b.scheduleWakeup()
	b.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		if !w.granted {
			b.waiters.Remove(elem)
			b.metricsCollector.SetWaitingCount(b.waiters.Len())
			b.mu.Unlock()
			return ctx.Err()
		}
		// The wake-up beat the cancellation; the token is already spent.
		b.mu.Unlock()
		return nil
	}
}

// Stats returns a snapshot of the bucket state.
// The token count is refilled before the snapshot is taken.
func (b *Bucket) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.destroyed {
		b.refill()
	}
	return Stats{
		Tokens:              b.tokens,
		MaxTokens:           b.maxTokens,
		WaitingCount:        b.waiters.Len(),
		RefillRatePerSecond: b.refillRate,
	}
}

// Stats represents a snapshot of the bucket state.
type Stats struct {
	Tokens              float64
	MaxTokens           int
	WaitingCount        int
	RefillRatePerSecond float64
}

// Destroy releases all pending waiters immediately without granting tokens
// and stops the refill schedule. It is intended for process shutdown, so that
// callers blocked in Acquire are not left hanging; they proceed as if a token
// had been granted.
func (b *Bucket) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.destroyed = true
	if b.timerActive {
		b.wakeupTimer.Stop()
		b.timerActive = false
	}
	for elem := b.waiters.Front(); elem != nil; elem = elem.Next() {
		w := elem.Value.(*waiter)
		w.granted = true
		close(w.ch)
		b.metricsCollector.IncDestroyReleases()
	}
	b.waiters.Init()
	b.metricsCollector.SetWaitingCount(0)
}

// refill recomputes the token count from the elapsed time. Lock must be held.
func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > float64(b.maxTokens) {
		b.tokens = float64(b.maxTokens)
	}
}

// scheduleWakeup arms the refill timer if it's not already armed. Lock must be held.
// The delay is derived from the shortfall to the next whole token.
func (b *Bucket) scheduleWakeup() {
	if b.timerActive {
		return
	}
	shortfall := 1 - b.tokens
	delay := time.Duration(shortfall / b.refillRate * float64(time.Second))
	if delay < MinWakeupDelay {
		delay = MinWakeupDelay
	}
	b.timerActive = true
	if b.wakeupTimer == nil {
		b.wakeupTimer = time.AfterFunc(delay, b.wakeup)
		return
	}
	b.wakeupTimer.Reset(delay)
}

// wakeup grants refilled tokens to waiters from the head of the queue
// and re-arms the timer if any waiters remain.
func (b *Bucket) wakeup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timerActive = false
	if b.destroyed {
		return
	}
	b.refill()
	for b.waiters.Len() > 0 && b.tokens >= 1 {
		elem := b.waiters.Front()
		b.waiters.Remove(elem)
		w := elem.Value.(*waiter)
		w.granted = true
		b.tokens--
		close(w.ch)
		b.metricsCollector.IncGrants(true)
		b.metricsCollector.ObserveWaitTime(time.Since(w.enqueuedAt))
	}
	b.metricsCollector.SetWaitingCount(b.waiters.Len())
	if b.waiters.Len() > 0 {
		b.scheduleWakeup()
	}
}
