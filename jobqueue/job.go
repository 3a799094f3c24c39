/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Status represents the lifecycle state of a job.
type Status string

// Job statuses. Pending, Running, and Retrying are transient;
// Completed and Failed are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job represents a unit of deferred work owned by a single Queue for its entire lifecycle.
type Job struct {
	ID          string
	Type        string
	Payload     any
	Status      Status
	Attempts    int
	MaxAttempts int
	Priority    int
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	LastError   string
}

// job is the internal mutable representation; Job copies of it are handed out to callers.
type job struct {
	Job
	seq     uint64 // arrival order, breaks priority ties
	backOff backoff.BackOff
}

func (j *job) snapshot() Job {
	return j.Job
}

// jobHeap orders jobs by priority descending, then by arrival order ascending.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
