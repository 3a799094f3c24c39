/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package errmon

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics about tracked errors.
type MetricsCollector interface {
	// IncErrors increments the lifetime total of tracked errors.
	IncErrors()

	// SetUniqueErrors sets the number of currently tracked fingerprints.
	SetUniqueErrors(int)

	// IncEvictions increments the total number of evicted fingerprint records.
	IncEvictions()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the monitor.
type PrometheusMetrics struct {
	ErrorsTotal        prometheus.Counter
	UniqueErrorsAmount prometheus.Gauge
	EvictionsTotal     prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		ErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "errmon_errors_total",
				Help:        "Lifetime number of tracked errors.",
				ConstLabels: opts.ConstLabels,
			},
		),
		UniqueErrorsAmount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   opts.Namespace,
				Name:        "errmon_unique_errors_amount",
				Help:        "Number of currently tracked error fingerprints.",
				ConstLabels: opts.ConstLabels,
			},
		),
		EvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "errmon_evictions_total",
				Help:        "Number of evicted error fingerprint records.",
				ConstLabels: opts.ConstLabels,
			},
		),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.ErrorsTotal,
		pm.UniqueErrorsAmount,
		pm.EvictionsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.ErrorsTotal)
	prometheus.Unregister(pm.UniqueErrorsAmount)
	prometheus.Unregister(pm.EvictionsTotal)
}

// IncErrors increments the lifetime total of tracked errors.
func (pm *PrometheusMetrics) IncErrors() {
	pm.ErrorsTotal.Inc()
}

// SetUniqueErrors sets the number of currently tracked fingerprints.
func (pm *PrometheusMetrics) SetUniqueErrors(n int) {
	pm.UniqueErrorsAmount.Set(float64(n))
}

// IncEvictions increments the total number of evicted fingerprint records.
func (pm *PrometheusMetrics) IncEvictions() {
	pm.EvictionsTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncErrors()          {}
func (disabledMetrics) SetUniqueErrors(int) {}
func (disabledMetrics) IncEvictions()       {}
