/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package errmon provides a deduplicating, windowed monitor of runtime failures.
//
// Errors are grouped by a fingerprint derived from the request method, route,
// and a truncated error message, so repeated occurrences of the same failure
// collapse into one record while distinct endpoints and messages stay separate.
// The monitor keeps a bounded set of fingerprints (evicting the one with the
// oldest last occurrence first), counts errors within a trailing 5-minute
// window, and emits a one-shot warning through the logger when the error rate
// crosses a configured threshold.
//
// A Monitor is supposed to be fed by a global error-handling boundary and read
// by health/metrics endpoints via Summary.
package errmon
