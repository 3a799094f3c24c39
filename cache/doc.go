/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cache provides a time- and capacity-bounded in-memory key/value store
// with LRU eviction, per-entry TTL, bulk invalidation by substring or glob pattern,
// and Prometheus metrics.
//
// A Cache instance is intended to be a long-lived singleton owned by the application,
// one per logical resource type. All operations are synchronous and never fail:
// absence and expiry are ordinary outcomes reported via a boolean.
package cache
