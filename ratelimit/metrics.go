/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsLabelWaited = "waited"

// MetricsCollector represents a collector of metrics about bucket usage and contention.
type MetricsCollector interface {
	// IncGrants increments the total number of granted tokens.
	// The argument tells whether the caller had to wait in the queue.
	IncGrants(waited bool)

	// ObserveWaitTime observes the time a waiter spent in the queue before being granted a token.
	ObserveWaitTime(d time.Duration)

	// SetWaitingCount sets the current length of the wait queue.
	SetWaitingCount(int)

	// IncDestroyReleases increments the total number of waiters released by Destroy without a token.
	IncDestroyReleases()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the bucket.
type PrometheusMetrics struct {
	GrantsTotal          *prometheus.CounterVec
	WaitDurationSeconds  prometheus.Histogram
	WaitingAmount        prometheus.Gauge
	DestroyReleasesTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		GrantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_grants_total",
				Help:        "Number of granted tokens.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{metricsLabelWaited},
		),
		WaitDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_wait_duration_seconds",
				Help:        "Time spent in the wait queue before a token was granted.",
				ConstLabels: opts.ConstLabels,
				Buckets:     prometheus.DefBuckets,
			},
		),
		WaitingAmount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_waiting_amount",
				Help:        "Current number of callers waiting for a token.",
				ConstLabels: opts.ConstLabels,
			},
		),
		DestroyReleasesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_destroy_releases_total",
				Help:        "Number of waiters released without a token on destroy.",
				ConstLabels: opts.ConstLabels,
			},
		),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.GrantsTotal,
		pm.WaitDurationSeconds,
		pm.WaitingAmount,
		pm.DestroyReleasesTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.GrantsTotal)
	prometheus.Unregister(pm.WaitDurationSeconds)
	prometheus.Unregister(pm.WaitingAmount)
	prometheus.Unregister(pm.DestroyReleasesTotal)
}

// IncGrants increments the total number of granted tokens.
func (pm *PrometheusMetrics) IncGrants(waited bool) {
	pm.GrantsTotal.With(prometheus.Labels{metricsLabelWaited: boolLabel(waited)}).Inc()
}

// ObserveWaitTime observes the time a waiter spent in the queue before being granted a token.
func (pm *PrometheusMetrics) ObserveWaitTime(d time.Duration) {
	pm.WaitDurationSeconds.Observe(d.Seconds())
}

// SetWaitingCount sets the current length of the wait queue.
func (pm *PrometheusMetrics) SetWaitingCount(n int) {
	pm.WaitingAmount.Set(float64(n))
}

// IncDestroyReleases increments the total number of waiters released by Destroy without a token.
func (pm *PrometheusMetrics) IncDestroyReleases() {
	pm.DestroyReleasesTotal.Inc()
}

func boolLabel(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type disabledMetrics struct{}

func (disabledMetrics) IncGrants(bool)                {}
func (disabledMetrics) ObserveWaitTime(time.Duration) {}
func (disabledMetrics) SetWaitingCount(int)           {}
func (disabledMetrics) IncDestroyReleases()           {}
