/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-appkit/log"
)

// Default configuration values.
const (
	DefaultConcurrency     = 5
	DefaultMaxQueueSize    = 1000
	DefaultMaxAttempts     = 3
	DefaultRetryInterval   = time.Second
	DefaultRetentionPeriod = 5 * time.Minute
	DefaultHardLimit       = 10000
)

// Handler processes a job's payload. A nil return marks the job completed;
// an error triggers a retry or, after the last attempt, a permanent failure.
type Handler func(ctx context.Context, payload any) error

// Options represents options for the queue.
type Options struct {
	// Concurrency is the maximum number of jobs executing in parallel.
	Concurrency int

	// MaxQueueSize is the maximum number of jobs waiting for execution
	// (pending or scheduled for retry). Enqueue fails with QueueFullError beyond it.
	MaxQueueSize int

	// MaxAttempts is the maximum number of execution attempts per job.
	MaxAttempts int

	// RetryPolicy produces per-job retry delays.
	// Defaults to linear backoff with DefaultRetryInterval.
	RetryPolicy Policy

	// RetentionPeriod is how long completed and failed jobs are kept for status queries.
	RetentionPeriod time.Duration

	// HardLimit is the total stored jobs ceiling that triggers an emergency cleanup
	// keeping only pending/running/retrying jobs. Bounds memory under failure storms.
	HardLimit int

	// BaseContext is the context passed to job handlers. Defaults to context.Background().
	BaseContext context.Context
}

// Queue is an in-memory priority job queue with bounded concurrency and retries.
type Queue struct {
	name        string
	concurrency int
	maxSize     int
	maxAttempts int
	retryPolicy Policy
	retention   time.Duration
	hardLimit   int
	baseCtx     context.Context

	logger           log.FieldLogger
	metricsCollector MetricsCollector

	mu        sync.Mutex
	handlers  map[string]Handler
	jobs      map[string]*job
	pending   jobHeap
	waiting   int // jobs in pending or retrying status
	running   int
	processed uint64
	failed    uint64
	seq       uint64
}

// New creates a new Queue with default options.
// Metrics collector and logger may be nil, in this case metrics/logging will be disabled.
func New(name string, metricsCollector MetricsCollector, logger log.FieldLogger) (*Queue, error) {
	return NewWithOpts(name, metricsCollector, logger, Options{})
}

// NewWithOpts creates a new Queue with the provided options.
func NewWithOpts(name string, metricsCollector MetricsCollector, logger log.FieldLogger, opts Options) (*Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("queue name must not be empty")
	}
	if opts.Concurrency < 0 || opts.MaxQueueSize < 0 || opts.MaxAttempts < 0 || opts.HardLimit < 0 {
		return nil, fmt.Errorf("queue limits must not be negative")
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxQueueSize == 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = NewLinearBackoffPolicy(DefaultRetryInterval)
	}
	if opts.RetentionPeriod == 0 {
		opts.RetentionPeriod = DefaultRetentionPeriod
	}
	if opts.HardLimit == 0 {
		opts.HardLimit = DefaultHardLimit
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Queue{
		name:             name,
		concurrency:      opts.Concurrency,
		maxSize:          opts.MaxQueueSize,
		maxAttempts:      opts.MaxAttempts,
		retryPolicy:      opts.RetryPolicy,
		retention:        opts.RetentionPeriod,
		hardLimit:        opts.HardLimit,
		baseCtx:          opts.BaseContext,
		logger:           logger.With(log.String("queue", name)),
		metricsCollector: metricsCollector,
		handlers:         make(map[string]Handler),
		jobs:             make(map[string]*job),
	}, nil
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Register registers a handler for the provided job type.
// Registering the same type again replaces the handler for jobs enqueued afterwards.
func (q *Queue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue adds a job with default (zero) priority and returns its ID.
func (q *Queue) Enqueue(jobType string, payload any) (string, error) {
	return q.EnqueueWithPriority(jobType, payload, 0)
}

// EnqueueWithPriority adds a job with the provided priority and returns its ID.
// Higher priority jobs are dispatched first; ties are broken by arrival order.
//
// It fails with UnregisteredTypeError if no handler was registered for the type
// and with QueueFullError if the queue already holds MaxQueueSize waiting jobs.
func (q *Queue) EnqueueWithPriority(jobType string, payload any, priority int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.handlers[jobType]; !ok {
		return "", &UnregisteredTypeError{Queue: q.name, Type: jobType}
	}
	if q.waiting >= q.maxSize {
		return "", &QueueFullError{Queue: q.name, Limit: q.maxSize}
	}

	q.seq++
	j := &job{
		Job: Job{
			ID:          xid.New().String(),
			Type:        jobType,
			Payload:     payload,
			Status:      StatusPending,
			MaxAttempts: q.maxAttempts,
			Priority:    priority,
			CreatedAt:   time.Now(),
		},
		seq:     q.seq,
		backOff: q.retryPolicy.NewBackOff(),
	}
	q.jobs[j.ID] = j
	heap.Push(&q.pending, j)
	q.waiting++
	q.metricsCollector.SetQueueSize(q.waiting)

	q.dispatchLocked()
	return j.ID, nil
}

// JobStatus returns a copy of the job with the provided ID.
// Terminal jobs are available until garbage-collected after the retention period.
func (q *Queue) JobStatus(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// Stats returns a snapshot of queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	statusCounts := make(map[Status]int)
	for _, j := range q.jobs {
		statusCounts[j.Status]++
	}
	return Stats{
		QueueSize:    q.waiting,
		Running:      q.running,
		Processed:    q.processed,
		Failed:       q.failed,
		StatusCounts: statusCounts,
	}
}

// Stats represents a snapshot of queue statistics.
type Stats struct {
	QueueSize    int
	Running      int
	Processed    uint64
	Failed       uint64
	StatusCounts map[Status]int
}

// Drain discards all jobs that are not currently running (pending and retrying)
// and returns the number of discarded jobs. Running jobs are left to finish.
// It is intended for graceful shutdown.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	discarded := 0
	for id, j := range q.jobs {
		if j.Status == StatusPending || j.Status == StatusRetrying {
			delete(q.jobs, id)
			discarded++
		}
	}
	q.pending = q.pending[:0]
	q.waiting = 0
	q.metricsCollector.SetQueueSize(0)
	if discarded > 0 {
		q.logger.Info("queue drained", log.Int("discardedJobs", discarded))
	}
	return discarded
}

// dispatchLocked starts pending jobs while free concurrency slots remain. Lock must be held.
func (q *Queue) dispatchLocked() {
	for q.running < q.concurrency && q.pending.Len() > 0 {
		j := heap.Pop(&q.pending).(*job)
		if q.jobs[j.ID] != j || j.Status != StatusPending {
			// The job was drained or already re-queued; stale heap entry.
			continue
		}
		handler := q.handlers[j.Type]
		j.Status = StatusRunning
		j.Attempts++
		j.StartedAt = time.Now()
		q.waiting--
		q.running++
		q.metricsCollector.SetQueueSize(q.waiting)
		q.metricsCollector.SetRunning(q.running)
		go q.runJob(j, handler)
	}
}

func (q *Queue) runJob(j *job, handler Handler) {
	err := q.executeHandler(handler, j.Payload)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--
	q.metricsCollector.SetRunning(q.running)

	if err == nil {
		j.Status = StatusCompleted
		j.CompletedAt = time.Now()
		q.processed++
		q.metricsCollector.IncProcessed()
	} else {
		j.LastError = err.Error()
		if j.Attempts < j.MaxAttempts {
			q.scheduleRetryLocked(j)
		} else {
			j.Status = StatusFailed
			j.CompletedAt = time.Now()
			q.failed++
			q.metricsCollector.IncFailed()
			q.logger.Error("job permanently failed",
				log.String("jobID", j.ID),
				log.String("jobType", j.Type),
				log.Int("attempts", j.Attempts),
				log.Error(err),
			)
		}
	}

	q.cleanupLocked()
	q.dispatchLocked()
}

// executeHandler invokes the handler converting its panic, if any, into an error,
// so that a misbehaving job doesn't take the whole process down.
func (q *Queue) executeHandler(handler Handler, payload any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			q.logger.Error(fmt.Sprintf("job handler panic: %+v", p), log.Bytes("stack", stack))
			err = fmt.Errorf("job handler panic: %+v", p)
		}
	}()
	return handler(q.baseCtx, payload)
}

// scheduleRetryLocked marks the job retrying and arms a timer returning it to pending. Lock must be held.
func (q *Queue) scheduleRetryLocked(j *job) {
	j.Status = StatusRetrying
	q.waiting++
	q.metricsCollector.SetQueueSize(q.waiting)
	q.metricsCollector.IncRetries()

	delay := j.backOff.NextBackOff()
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.jobs[j.ID] != j || j.Status != StatusRetrying {
			return // drained in the meantime
		}
		j.Status = StatusPending
		heap.Push(&q.pending, j)
		q.dispatchLocked()
	})
}

// cleanupLocked garbage-collects terminal jobs. Lock must be held.
// Terminal jobs older than the retention period are removed; if the total number
// of stored jobs exceeds the hard limit, all terminal jobs are dropped at once.
func (q *Queue) cleanupLocked() {
	now := time.Now()
	for id, j := range q.jobs {
		if (j.Status == StatusCompleted || j.Status == StatusFailed) && now.Sub(j.CompletedAt) > q.retention {
			delete(q.jobs, id)
		}
	}
	if len(q.jobs) <= q.hardLimit {
		return
	}
	removed := 0
	for id, j := range q.jobs {
		if j.Status == StatusCompleted || j.Status == StatusFailed {
			delete(q.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		q.logger.Warn("emergency job cleanup", log.Int("removedJobs", removed), log.Int("hardLimit", q.hardLimit))
	}
}
