/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package jobqueue provides an in-memory job queue with worker-pool concurrency
// control, priority ordering, and retry with configurable backoff.
//
// A Queue decouples job submission from execution: handlers are registered per
// job type, jobs are dispatched highest-priority-first (ties broken by arrival
// order), and no more than the configured number of jobs run in parallel.
// Failed jobs are retried up to a maximum number of attempts; a permanently
// failed job is never re-surfaced to the enqueuer and is observable only through
// Stats and JobStatus. Terminal jobs are retained for a short period for status
// queries and then garbage-collected.
//
// State is volatile and scoped to the running process. Execution is at-least-once
// with bounded retries, not exactly-once.
package jobqueue
