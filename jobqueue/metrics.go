/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics about queue throughput and saturation.
type MetricsCollector interface {
	// SetQueueSize sets the number of jobs waiting for execution.
	SetQueueSize(int)

	// SetRunning sets the number of currently executing jobs.
	SetRunning(int)

	// IncProcessed increments the total number of successfully completed jobs.
	IncProcessed()

	// IncFailed increments the total number of permanently failed jobs.
	IncFailed()

	// IncRetries increments the total number of scheduled retries.
	IncRetries()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the queue.
type PrometheusMetrics struct {
	QueueSize      *prometheus.GaugeVec
	RunningAmount  *prometheus.GaugeVec
	ProcessedTotal *prometheus.CounterVec
	FailedTotal    *prometheus.CounterVec
	RetriesTotal   *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueueSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   opts.Namespace,
				Name:        "jobqueue_waiting_amount",
				Help:        "Number of jobs waiting for execution.",
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		),
		RunningAmount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   opts.Namespace,
				Name:        "jobqueue_running_amount",
				Help:        "Number of currently executing jobs.",
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		),
		ProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "jobqueue_processed_total",
				Help:        "Number of successfully completed jobs.",
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		),
		FailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "jobqueue_failed_total",
				Help:        "Number of permanently failed jobs.",
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "jobqueue_retries_total",
				Help:        "Number of scheduled job retries.",
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueueSize:      pm.QueueSize.MustCurryWith(labels),
		RunningAmount:  pm.RunningAmount.MustCurryWith(labels),
		ProcessedTotal: pm.ProcessedTotal.MustCurryWith(labels),
		FailedTotal:    pm.FailedTotal.MustCurryWith(labels),
		RetriesTotal:   pm.RetriesTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.QueueSize,
		pm.RunningAmount,
		pm.ProcessedTotal,
		pm.FailedTotal,
		pm.RetriesTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueueSize)
	prometheus.Unregister(pm.RunningAmount)
	prometheus.Unregister(pm.ProcessedTotal)
	prometheus.Unregister(pm.FailedTotal)
	prometheus.Unregister(pm.RetriesTotal)
}

// SetQueueSize sets the number of jobs waiting for execution.
func (pm *PrometheusMetrics) SetQueueSize(n int) {
	pm.QueueSize.With(nil).Set(float64(n))
}

// SetRunning sets the number of currently executing jobs.
func (pm *PrometheusMetrics) SetRunning(n int) {
	pm.RunningAmount.With(nil).Set(float64(n))
}

// IncProcessed increments the total number of successfully completed jobs.
func (pm *PrometheusMetrics) IncProcessed() {
	pm.ProcessedTotal.With(nil).Inc()
}

// IncFailed increments the total number of permanently failed jobs.
func (pm *PrometheusMetrics) IncFailed() {
	pm.FailedTotal.With(nil).Inc()
}

// IncRetries increments the total number of scheduled retries.
func (pm *PrometheusMetrics) IncRetries() {
	pm.RetriesTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueSize(int) {}
func (disabledMetrics) SetRunning(int)   {}
func (disabledMetrics) IncProcessed()    {}
func (disabledMetrics) IncFailed()       {}
func (disabledMetrics) IncRetries()      {}
