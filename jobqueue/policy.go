/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy defines the strategy for delays between retry attempts of a failed job.
// A new backoff.BackOff is created per job, so policies may keep per-job state.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// LinearBackoffPolicy means the delay before the n-th retry is interval × n.
type LinearBackoffPolicy struct {
	interval time.Duration
}

// NewLinearBackoffPolicy returns a linear backoff policy with the given base interval.
func NewLinearBackoffPolicy(interval time.Duration) LinearBackoffPolicy {
	return LinearBackoffPolicy{interval}
}

// NewBackOff implements Policy.
func (p LinearBackoffPolicy) NewBackOff() backoff.BackOff {
	return &linearBackOff{interval: p.interval}
}

// ConstantBackoffPolicy means a constant delay between retries.
type ConstantBackoffPolicy struct {
	interval time.Duration
}

// NewConstantBackoffPolicy returns a constant backoff policy with the given interval.
func NewConstantBackoffPolicy(interval time.Duration) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewConstantBackOff(p.interval)
	b.Reset()
	return b
}

// ExponentialBackoffPolicy means delays growing exponentially (1.5 multiplier) from the initial interval.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with the given initial interval.
func NewExponentialBackoffPolicy(initialInterval time.Duration) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval}
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// linearBackOff implements backoff.BackOff with delays interval, 2×interval, 3×interval, ...
type linearBackOff struct {
	interval time.Duration
	retries  int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.interval * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}
