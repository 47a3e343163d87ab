package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that execute submissions
// from a queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// queue provides read access to the submissions to be processed
	queue SubmissionQueueReader

	// process executes a single submission
	process func(ctx context.Context, s Submission) error

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when processing a submission fails
	// If nil, errors are only logged
	errorHandler func(s Submission, err error)

	startOnce sync.Once
	stopOnce  sync.Once
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	queue SubmissionQueueReader,
	process func(ctx context.Context, s Submission) error,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	logger = logger.With("component", "worker_pool")

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		process:     process,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for processing failures
func (p *WorkerPool) SetErrorHandler(handler func(s Submission, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines. Calling Start twice has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Info("worker pool started", "worker_count", p.workerCount)
	})
}

// Stop cancels in-flight work and waits for every worker to exit.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Info("worker pool stopped")
	})
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case s, ok := <-p.queue.GetChannel():
			if !ok {
				p.logger.Debug("submission channel closed, stopping worker", "worker_id", id)
				return
			}
			p.run(s, id)
		}
	}
}

func (p *WorkerPool) run(s Submission, workerID int) {
	if err := p.process(p.ctx, s); err != nil {
		p.logger.Error("submission processing failed",
			"task_id", s.TaskID,
			"task_kind", s.Adapter.Kind(),
			"worker_id", workerID,
			"error", err)
		if p.errorHandler != nil {
			p.errorHandler(s, err)
		}
	}
}
