/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package errmon

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/acronis/go-appkit/log"
)

// Default configuration values.
const (
	DefaultMaxFingerprints = 500
	DefaultRecentWindow    = 5 * time.Minute
	DefaultSummaryWindow   = time.Hour
	DefaultRateThreshold   = 100
	DefaultTopLimit        = 20

	maxFingerprintMessageLen = 100
	maxSampleStackLen        = 4096
)

// Metadata carries request attributes attached to a tracked error.
// All fields are optional.
type Metadata struct {
	Route      string
	Method     string
	StatusCode int
}

// Record represents the aggregated state of one error fingerprint.
type Record struct {
	Fingerprint string
	Message     string
	SampleStack string
	Count       int
	FirstSeen   time.Time
	LastSeen    time.Time
	Route       string
	Method      string
	StatusCode  int
}

// Summary represents an aggregated view of tracked errors.
type Summary struct {
	// TotalErrors is a monotonic lifetime counter.
	TotalErrors uint64

	// ErrorsLast5Min is the exact number of errors within the trailing recent window.
	ErrorsLast5Min int

	// UniqueErrors is the number of currently tracked fingerprints.
	UniqueErrors int

	// TopErrors contains records last seen within the summary window,
	// sorted by occurrence count descending, at most TopLimit entries.
	TopErrors []Record
}

// Options represents options for the monitor.
type Options struct {
	// MaxFingerprints caps the number of tracked records. When a new fingerprint
	// arrives at the cap, the record with the oldest last occurrence is evicted.
	MaxFingerprints int

	// RecentWindow is the trailing window of the error rate counter.
	RecentWindow time.Duration

	// SummaryWindow filters Summary records by their last occurrence.
	SummaryWindow time.Duration

	// RateThreshold is the number of errors within RecentWindow that triggers
	// a one-shot warning through the logger. Zero disables the warning.
	RateThreshold int

	// TopLimit is the maximum number of records returned in Summary.
	TopLimit int
}

// Monitor deduplicates and counts runtime failures.
type Monitor struct {
	maxFingerprints int
	recentWindow    time.Duration
	summaryWindow   time.Duration
	rateThreshold   int
	topLimit        int

	logger           log.FieldLogger
	metricsCollector MetricsCollector

	mu           sync.Mutex
	records      map[string]*Record
	recentTimes  []time.Time
	totalErrors  uint64
	rateExceeded bool // one-shot warning latch, re-arms when the rate falls below
	nowFn        func() time.Time
}

// New creates a new Monitor with default options.
// Metrics collector and logger may be nil, in this case metrics/logging will be disabled.
func New(metricsCollector MetricsCollector, logger log.FieldLogger) *Monitor {
	return NewWithOpts(metricsCollector, logger, Options{})
}

// NewWithOpts creates a new Monitor with the provided options.
func NewWithOpts(metricsCollector MetricsCollector, logger log.FieldLogger, opts Options) *Monitor {
	if opts.MaxFingerprints <= 0 {
		opts.MaxFingerprints = DefaultMaxFingerprints
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = DefaultSummaryWindow
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = DefaultTopLimit
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Monitor{
		maxFingerprints:  opts.MaxFingerprints,
		recentWindow:     opts.RecentWindow,
		summaryWindow:    opts.SummaryWindow,
		rateThreshold:    opts.RateThreshold,
		topLimit:         opts.TopLimit,
		logger:           logger,
		metricsCollector: metricsCollector,
		records:          make(map[string]*Record),
		nowFn:            time.Now,
	}
}

// Track records an occurrence of the provided error.
// The first occurrence of a fingerprint captures a sample stack;
// repeats only bump the count and the last-seen timestamp.
func (m *Monitor) Track(err error, md Metadata) {
	if err == nil {
		return
	}

	msg := err.Error()
	fingerprint := makeFingerprint(md.Method, md.Route, msg)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	m.totalErrors++
	m.metricsCollector.IncErrors()

	rec, ok := m.records[fingerprint]
	if ok {
		rec.Count++
		rec.LastSeen = now
	} else {
		m.evictIfNeeded()
		rec = &Record{
			Fingerprint: fingerprint,
			Message:     msg,
			SampleStack: truncate(string(debug.Stack()), maxSampleStackLen),
			Count:       1,
			FirstSeen:   now,
			LastSeen:    now,
			Route:       md.Route,
			Method:      md.Method,
			StatusCode:  md.StatusCode,
		}
		m.records[fingerprint] = rec
		m.metricsCollector.SetUniqueErrors(len(m.records))
	}

	m.recentTimes = append(m.recentTimes, now)
	recent := m.pruneRecentLocked(now)
	m.checkRateLocked(recent)
}

// Summary returns an aggregated view of tracked errors.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	top := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		if now.Sub(rec.LastSeen) <= m.summaryWindow {
			top = append(top, *rec)
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > m.topLimit {
		top = top[:m.topLimit]
	}

	return Summary{
		TotalErrors:    m.totalErrors,
		ErrorsLast5Min: m.pruneRecentLocked(now),
		UniqueErrors:   len(m.records),
		TopErrors:      top,
	}
}

// pruneRecentLocked drops timestamps outside the trailing window and returns the remaining count.
// Lock must be held.
func (m *Monitor) pruneRecentLocked(now time.Time) int {
	cutoff := now.Add(-m.recentWindow)
	i := 0
	for i < len(m.recentTimes) && !m.recentTimes[i].After(cutoff) {
		i++
	}
	if i > 0 {
		m.recentTimes = append(m.recentTimes[:0], m.recentTimes[i:]...)
	}
	return len(m.recentTimes)
}

// checkRateLocked emits a one-shot warning when the recent error count crosses the threshold.
// Lock must be held.
func (m *Monitor) checkRateLocked(recent int) {
	if m.rateThreshold <= 0 {
		return
	}
	if recent >= m.rateThreshold {
		if !m.rateExceeded {
			m.rateExceeded = true
			m.logger.Warn("high error rate detected",
				log.Int("errorsInWindow", recent),
				log.Int("threshold", m.rateThreshold),
				log.Duration("window", m.recentWindow),
			)
		}
		return
	}
	m.rateExceeded = false
}

// evictIfNeeded makes room for a new fingerprint by removing the record with the
// oldest last occurrence. An actively recurring but rare fingerprint therefore
// survives longer than a one-off that hasn't recurred. Lock must be held.
func (m *Monitor) evictIfNeeded() {
	if len(m.records) < m.maxFingerprints {
		return
	}
	var oldestKey string
	var oldest time.Time
	for key, rec := range m.records {
		if oldestKey == "" || rec.LastSeen.Before(oldest) {
			oldestKey = key
			oldest = rec.LastSeen
		}
	}
	if oldestKey != "" {
		delete(m.records, oldestKey)
		m.metricsCollector.IncEvictions()
	}
}

func makeFingerprint(method, route, msg string) string {
	return fmt.Sprintf("%s:%s:%s", method, route, truncate(msg, maxFingerprintMessageLen))
}

// truncate cuts s to at most limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
