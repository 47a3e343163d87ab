package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the SubmissionQueue
var (
	ErrQueueClosed = errors.New("submission queue is closed")
	ErrQueueFull   = errors.New("submission queue is full")
)

// SubmissionQueue is a bounded buffer of submissions. Workers consume it
// through SubmissionQueueReader.
type SubmissionQueue struct {
	mu     sync.RWMutex
	items  chan Submission
	logger *slog.Logger
	closed bool
}

// NewSubmissionQueue creates a new queue with the specified buffer size
func NewSubmissionQueue(size int, logger *slog.Logger) *SubmissionQueue {
	if size <= 0 {
		size = 1
	}
	return &SubmissionQueue{
		items:  make(chan Submission, size),
		logger: logger.With("component", "submission_queue"),
	}
}

// Enqueue adds a submission without blocking.
// Returns ErrQueueFull when the buffer is at capacity and ErrQueueClosed
// after Close.
func (q *SubmissionQueue) Enqueue(s Submission) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- s:
		q.logger.Debug("submission enqueued",
			"task_id", s.TaskID,
			"task_kind", s.Adapter.Kind(),
			"queue_len", len(q.items),
			"queue_cap", cap(q.items))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.items))
	}
}

// Close closes the queue, preventing further submissions.
// Submissions already buffered are still delivered to readers.
func (q *SubmissionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
		q.logger.Info("submission queue closed")
	}
}

// GetChannel returns a read-only channel for consuming submissions
func (q *SubmissionQueue) GetChannel() <-chan Submission {
	return q.items
}
