/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import "fmt"

// UnregisteredTypeError is returned by Enqueue when no handler is registered for the job type.
// The caller is expected to register handlers before first use.
type UnregisteredTypeError struct {
	Queue string
	Type  string
}

// Error implements the error interface.
func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("no handler registered for job type %q in queue %q", e.Type, e.Queue)
}

// QueueFullError is returned by Enqueue when the queue already holds the maximum number of jobs.
// It carries the queue name and limit so that the caller can apply its own backpressure.
type QueueFullError struct {
	Queue string
	Limit int
}

// Error implements the error interface.
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("queue %q is full (limit %d)", e.Queue, e.Limit)
}
