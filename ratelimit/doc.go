/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides a token-bucket rate limiter with a fair waiting queue.
//
// A Bucket bounds the throughput of calls to a rate-limited downstream dependency:
// tokens refill continuously at a configured rate up to a burst capacity, and callers
// that find the bucket empty wait in strict FIFO order. One Bucket is supposed to be
// created per throttled resource and held for the process lifetime; Destroy releases
// all pending waiters at shutdown so that none of them is left hanging.
package ratelimit
