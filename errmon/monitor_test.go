/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package errmon

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-appkit/log/logtest"
)

func TestMonitorTrackDeduplicates(t *testing.T) {
	m := New(nil, nil)

	md := Metadata{Route: "/api/items", Method: "GET", StatusCode: 500}
	m.Track(fmt.Errorf("db connection lost"), md)
	m.Track(fmt.Errorf("db connection lost"), md)

	summary := m.Summary()
	require.Equal(t, uint64(2), summary.TotalErrors)
	require.Equal(t, 1, summary.UniqueErrors)
	require.Len(t, summary.TopErrors, 1)

	rec := summary.TopErrors[0]
	require.Equal(t, 2, rec.Count)
	require.Equal(t, "db connection lost", rec.Message)
	require.Equal(t, "/api/items", rec.Route)
	require.Equal(t, "GET", rec.Method)
	require.Equal(t, 500, rec.StatusCode)
	require.NotEmpty(t, rec.SampleStack)
	require.False(t, rec.FirstSeen.IsZero())
	require.False(t, rec.LastSeen.Before(rec.FirstSeen))
}

func TestMonitorDistinctFingerprints(t *testing.T) {
	m := New(nil, nil)

	// Same message on different routes and methods produces distinct fingerprints.
	m.Track(fmt.Errorf("timeout"), Metadata{Route: "/a", Method: "GET"})
	m.Track(fmt.Errorf("timeout"), Metadata{Route: "/b", Method: "GET"})
	m.Track(fmt.Errorf("timeout"), Metadata{Route: "/a", Method: "POST"})

	summary := m.Summary()
	require.Equal(t, uint64(3), summary.TotalErrors)
	require.Equal(t, 3, summary.UniqueErrors)
}

func TestMonitorFingerprintTruncatesMessage(t *testing.T) {
	m := New(nil, nil)

	prefix := strings.Repeat("x", maxFingerprintMessageLen)
	m.Track(fmt.Errorf("%s-first", prefix), Metadata{})
	m.Track(fmt.Errorf("%s-second", prefix), Metadata{})

	// Messages differing only beyond the truncation limit collapse into one fingerprint.
	summary := m.Summary()
	require.Equal(t, 1, summary.UniqueErrors)
	require.Equal(t, 2, summary.TopErrors[0].Count)
}

func TestMonitorFingerprintKeepsRuneBoundary(t *testing.T) {
	m := New(nil, nil)

	// The 3-byte rune straddles the truncation limit; the cut must not split it.
	prefix := strings.Repeat("x", maxFingerprintMessageLen-1)
	m.Track(fmt.Errorf("%s世 first", prefix), Metadata{})
	m.Track(fmt.Errorf("%s世 second", prefix), Metadata{})

	summary := m.Summary()
	require.Equal(t, 1, summary.UniqueErrors)
	rec := summary.TopErrors[0]
	require.True(t, utf8.ValidString(rec.Fingerprint))
	require.Equal(t, 2, rec.Count)
}

func TestMonitorTrackNilError(t *testing.T) {
	m := New(nil, nil)
	m.Track(nil, Metadata{})
	summary := m.Summary()
	require.Equal(t, uint64(0), summary.TotalErrors)
	require.Equal(t, 0, summary.UniqueErrors)
}

func TestMonitorTopErrorsSortedAndLimited(t *testing.T) {
	const topLimit = 3
	m := NewWithOpts(nil, nil, Options{TopLimit: topLimit})

	for i := 0; i < 5; i++ {
		for j := 0; j <= i; j++ {
			m.Track(fmt.Errorf("error %d", i), Metadata{})
		}
	}

	summary := m.Summary()
	require.Equal(t, 5, summary.UniqueErrors)
	require.Len(t, summary.TopErrors, topLimit)
	require.Equal(t, "error 4", summary.TopErrors[0].Message)
	require.Equal(t, 5, summary.TopErrors[0].Count)
	require.Equal(t, "error 3", summary.TopErrors[1].Message)
	require.Equal(t, "error 2", summary.TopErrors[2].Message)
}

func TestMonitorEvictsOldestLastSeen(t *testing.T) {
	m := NewWithOpts(nil, nil, Options{MaxFingerprints: 3})

	now := time.Now()
	m.nowFn = func() time.Time { return now }

	m.Track(fmt.Errorf("error a"), Metadata{})
	now = now.Add(time.Second)
	m.Track(fmt.Errorf("error b"), Metadata{})
	now = now.Add(time.Second)
	m.Track(fmt.Errorf("error c"), Metadata{})

	// Refresh "error a" so "error b" becomes the stalest record.
	now = now.Add(time.Second)
	m.Track(fmt.Errorf("error a"), Metadata{})

	now = now.Add(time.Second)
	m.Track(fmt.Errorf("error d"), Metadata{})

	summary := m.Summary()
	require.Equal(t, 3, summary.UniqueErrors)
	messages := make([]string, 0, len(summary.TopErrors))
	for _, rec := range summary.TopErrors {
		messages = append(messages, rec.Message)
	}
	require.ElementsMatch(t, []string{"error a", "error c", "error d"}, messages)
}

func TestMonitorRecentWindowPruning(t *testing.T) {
	m := NewWithOpts(nil, nil, Options{RecentWindow: 5 * time.Minute})

	now := time.Now()
	m.nowFn = func() time.Time { return now }

	m.Track(fmt.Errorf("old error"), Metadata{})
	m.Track(fmt.Errorf("old error"), Metadata{})
	require.Equal(t, 2, m.Summary().ErrorsLast5Min)

	now = now.Add(6 * time.Minute)
	m.Track(fmt.Errorf("new error"), Metadata{})

	summary := m.Summary()
	require.Equal(t, uint64(3), summary.TotalErrors)
	require.Equal(t, 1, summary.ErrorsLast5Min)
}

func TestMonitorSummaryWindowFiltersStaleRecords(t *testing.T) {
	m := NewWithOpts(nil, nil, Options{SummaryWindow: time.Hour})

	now := time.Now()
	m.nowFn = func() time.Time { return now }

	m.Track(fmt.Errorf("stale error"), Metadata{})
	now = now.Add(2 * time.Hour)
	m.Track(fmt.Errorf("fresh error"), Metadata{})

	summary := m.Summary()
	require.Equal(t, 2, summary.UniqueErrors)
	require.Len(t, summary.TopErrors, 1)
	require.Equal(t, "fresh error", summary.TopErrors[0].Message)
}

func TestMonitorHighRateWarningIsOneShot(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	m := NewWithOpts(nil, logRecorder, Options{RateThreshold: 3, RecentWindow: time.Minute})

	now := time.Now()
	m.nowFn = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		m.Track(fmt.Errorf("error %d", i), Metadata{})
	}

	entries := logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
		return entry.Text == "high error rate detected"
	})
	require.Len(t, entries, 1)
	thresholdField, found := entries[0].FindField("threshold")
	require.True(t, found)
	require.Equal(t, 3, int(thresholdField.Int))

	// The latch re-arms once the rate falls below the threshold.
	now = now.Add(2 * time.Minute)
	m.Track(fmt.Errorf("quiet period error"), Metadata{})
	for i := 0; i < 5; i++ {
		m.Track(fmt.Errorf("burst error %d", i), Metadata{})
	}

	entries = logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
		return entry.Text == "high error rate detected"
	})
	require.Len(t, entries, 2)
}

func TestMonitorPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	m := NewWithOpts(pm, nil, Options{MaxFingerprints: 2})

	m.Track(fmt.Errorf("error a"), Metadata{})
	m.Track(fmt.Errorf("error b"), Metadata{})
	m.Track(fmt.Errorf("error c"), Metadata{})

	require.Equal(t, 3.0, testutil.ToFloat64(pm.ErrorsTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(pm.UniqueErrorsAmount))
	require.Equal(t, 1.0, testutil.ToFloat64(pm.EvictionsTotal))
}
