package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("notification queue is closed")
	ErrQueueFull   = errors.New("notification queue is full")
)

// Queue is a bounded, non-blocking buffer of jobs.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding at most size pending jobs.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:   make(chan Job, size),
		logger: logger,
	}
}

// Enqueue adds a job without blocking.
// Returns ErrQueueClosed or ErrQueueFull when the job cannot be accepted.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("notification enqueued",
			"kind", job.Kind,
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// Close stops accepting jobs. Jobs already queued remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		q.logger.Info("notification queue closed")
	}
}

// Jobs returns the channel workers consume from.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}
