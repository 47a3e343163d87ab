package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/redact"
)

// ErrUnknownKind is returned when no adapter is registered for a kind.
var ErrUnknownKind = errors.New("no adapter registered for task kind")

// ServiceConfig holds configuration for the task service
type ServiceConfig struct {
	// WorkerCount determines how many submissions run concurrently
	WorkerCount int

	// QueueSize bounds the number of submissions waiting for a worker
	QueueSize int

	Sweeper SweeperConfig
}

// DefaultServiceConfig returns a ServiceConfig with reasonable defaults
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		WorkerCount: DefaultWorkerPoolConfig().WorkerCount,
		QueueSize:   100,
		Sweeper:     DefaultSweeperConfig(),
	}
}

// KindInfo describes a task kind as exposed to clients.
type KindInfo struct {
	Kind         domain.Kind `json:"kind"`
	Configured   bool        `json:"configured"`
	Asynchronous bool        `json:"asynchronous"`
}

// Service is the public entry point for submitting and querying tasks.
type Service struct {
	registry *Registry
	adapters map[domain.Kind]Adapter
	queue    *SubmissionQueue
	pool     *WorkerPool
	poller   *Poller
	sweeper  *Sweeper
	content  ContentStore
	clock    clock.Clock
	logger   *slog.Logger

	lifecycle sync.Mutex
	started   bool
	stopped   bool
}

// NewService wires a registry, poller, sweeper and worker pool around the
// given adapters. content may be nil when no adapter stores payloads.
func NewService(
	config ServiceConfig,
	registry *Registry,
	content ContentStore,
	c clock.Clock,
	logger *slog.Logger,
	adapters ...Adapter,
) *Service {
	logger = logger.With("component", "task_service")

	s := &Service{
		registry: registry,
		adapters: make(map[domain.Kind]Adapter, len(adapters)),
		content:  content,
		clock:    c,
		logger:   logger,
	}
	for _, a := range adapters {
		s.adapters[a.Kind()] = a
	}

	s.queue = NewSubmissionQueue(config.QueueSize, logger)
	s.pool = NewWorkerPool(s.queue, s.execute, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	s.pool.SetErrorHandler(s.recordFailure)
	s.poller = NewPoller(registry, c, s.releaseContent, logger, WithTransitionObserver(s.trackerChanged))
	s.sweeper = NewSweeper(registry, c, config.Sweeper, s.releaseTasks, logger)
	return s
}

// Registry returns the registry backing the service.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Poller returns the poller driving external jobs.
func (s *Service) Poller() *Poller {
	return s.poller
}

// Sweeper returns the cleanup sweeper.
func (s *Service) Sweeper() *Sweeper {
	return s.sweeper
}

// Start launches the worker pool and the sweeper.
func (s *Service) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true
	s.pool.Start()
	s.sweeper.Start()
	s.logger.Info("task service started", "kinds", len(s.adapters))
}

// Stop refuses new submissions, cancels in-flight work and waits for every
// background goroutine to exit. Submissions still queued are marked failed
// with domain.ErrorKindCanceled. Task records are kept.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.queue.Close()
	s.pool.Stop()
	canceled := s.drainQueue()
	s.poller.Stop()
	s.sweeper.Stop()
	s.logger.Info("task service stopped", "canceled_submissions", canceled)
}

// Submit registers a pending task for req and queues it for execution. It
// returns the new task ID without waiting for the external call. Unset
// optional request fields get their kind's defaults.
//
// Missing configuration for the kind fails with domain.ErrConfiguration
// before any record is created. A full queue fails with ErrQueueFull and
// leaves no record behind. On any error the request's stored content is
// released.
func (s *Service) Submit(ctx context.Context, req domain.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: request cannot be nil", domain.ErrValidation)
	}

	id, err := s.submit(req)
	if err != nil {
		s.releaseContent(ctx, contentKeys(req))
		return "", err
	}
	return id, nil
}

func (s *Service) submit(req domain.Request) (string, error) {
	req = domain.ApplyDefaults(req)
	kind := req.Kind()
	adapter, ok := s.adapters[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if err := adapter.CheckConfig(); err != nil {
		if !errors.Is(err, domain.ErrConfiguration) {
			err = fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		return "", fmt.Errorf("%s: %w", kind, err)
	}

	task, err := domain.NewTask(req, s.clock.Now())
	if err != nil {
		return "", err
	}
	if err := s.registry.Add(*task); err != nil {
		return "", fmt.Errorf("failed to register task: %w", err)
	}

	if err := s.queue.Enqueue(Submission{TaskID: task.ID, Request: req, Adapter: adapter}); err != nil {
		s.registry.Remove(task.ID)
		if errors.Is(err, ErrQueueClosed) {
			return "", err
		}
		return "", fmt.Errorf("%w: try again later", ErrQueueFull)
	}

	s.logger.Info("task submitted", "task_id", task.ID, "task_kind", kind)
	return task.ID, nil
}

// drainQueue fails every submission left in the closed queue. It must run
// after the worker pool has stopped.
func (s *Service) drainQueue() int {
	taskErr := domain.NewTaskError(domain.ErrorKindCanceled, "service stopped before the task started")
	n := 0
	for sub := range s.queue.GetChannel() {
		logger := s.logger.With("task_id", sub.TaskID, "task_kind", sub.Adapter.Kind())
		if s.finish(sub.TaskID, domain.Failed(taskErr), logger) {
			n++
		}
	}
	return n
}

// execute runs one submission on a worker goroutine. A returned error is
// recorded on the task by recordFailure.
func (s *Service) execute(ctx context.Context, sub Submission) error {
	logger := s.logger.With("task_id", sub.TaskID, "task_kind", sub.Adapter.Kind())

	task, err := s.registry.Get(sub.TaskID)
	if err != nil || task.Status != domain.StatusPending {
		logger.Debug("task removed before execution, skipping")
		return nil
	}

	switch a := sub.Adapter.(type) {
	case SyncAdapter:
		return s.invoke(ctx, a, task, logger)
	case JobAdapter:
		return s.submitJob(ctx, a, task, logger)
	default:
		return domain.NewTaskError(domain.ErrorKindConfiguration,
			fmt.Sprintf("adapter for %s implements neither SyncAdapter nor JobAdapter", a.Kind()))
	}
}

// recordFailure marks the submission's task failed with err.
func (s *Service) recordFailure(sub Submission, err error) {
	var taskErr *domain.TaskError
	if !errors.As(err, &taskErr) {
		taskErr = domain.NewTaskError(domain.ClassifyError(err, domain.ErrorKindNetwork), redact.Error(err))
	}
	logger := s.logger.With("task_id", sub.TaskID, "task_kind", sub.Adapter.Kind())
	s.finish(sub.TaskID, domain.Failed(taskErr), logger)
}

func (s *Service) invoke(ctx context.Context, a SyncAdapter, task domain.Task, logger *slog.Logger) error {
	if _, err := s.registry.Update(task.ID, domain.Processing("")); err != nil {
		logger.Debug("task changed before invocation, skipping", "error", err)
		return nil
	}

	result, err := a.Invoke(ctx, task.Request)
	if err != nil {
		return domain.NewTaskError(domain.ClassifyError(err, domain.ErrorKindNetwork), redact.Error(err))
	}

	if !s.finish(task.ID, domain.Completed(result), logger) {
		s.releaseContent(ctx, contentKeys(result))
		return nil
	}
	logger.Info("task completed")
	return nil
}

func (s *Service) submitJob(ctx context.Context, a JobAdapter, task domain.Task, logger *slog.Logger) error {
	jobID, err := a.SubmitJob(ctx, task.Request)
	if err != nil {
		return domain.NewTaskError(domain.ClassifyError(err, domain.ErrorKindNetwork), redact.Error(err))
	}

	updated, err := s.registry.Update(task.ID, domain.Processing(jobID))
	if err != nil {
		logger.Info("task removed after job submission, external job left unattended",
			"job_id", jobID,
			"error", err)
		return nil
	}

	logger.Info("external job submitted", "job_id", jobID)
	s.poller.Track(updated, jobID, a)
	return nil
}

// finish applies a terminal patch and reports whether it was recorded.
func (s *Service) finish(id string, patch domain.Patch, logger *slog.Logger) bool {
	if _, err := s.registry.Update(id, patch); err != nil {
		logger.Debug("could not record outcome, task removed or finalized", "error", err)
		return false
	}
	return true
}

// trackerChanged lets adapters drop per-job state once a tracker is done.
func (s *Service) trackerChanged(tr TrackerTransition) {
	if !tr.To.Done() {
		return
	}
	if r, ok := s.adapters[tr.Kind].(JobReleaser); ok {
		r.ReleaseJob(tr.JobID)
	}
}

// GetTask returns a snapshot of the task or domain.ErrTaskNotFound.
func (s *Service) GetTask(id string) (domain.Task, error) {
	return s.registry.Get(id)
}

// List returns every task in submission order.
func (s *Service) List() []domain.Task {
	return s.registry.List()
}

// ListActive returns the pending and processing tasks.
func (s *Service) ListActive() []domain.Task {
	return s.registry.ListActive()
}

// ListByKind returns the tasks of one kind.
func (s *Service) ListByKind(kind domain.Kind) []domain.Task {
	return s.registry.ListByKind(kind)
}

// Remove deletes the task and its stored content. Any tracker polling the
// task exits before its next query. Removing an unknown ID is not an error.
func (s *Service) Remove(ctx context.Context, id string) {
	task, ok := s.registry.Remove(id)
	if !ok {
		return
	}
	s.releaseContent(ctx, task.ContentKeys())
	s.logger.Info("task removed", "task_id", id, "task_kind", task.Kind, "status", task.Status)
}

// Content returns the primary payload of a completed task.
func (s *Service) Content(ctx context.Context, id string) ([]byte, domain.ContentRef, error) {
	task, err := s.registry.Get(id)
	if err != nil {
		return nil, domain.ContentRef{}, err
	}

	ref, ok := resultContent(task.Result)
	if !ok || s.content == nil {
		return nil, domain.ContentRef{}, fmt.Errorf("%w: task %s has no downloadable result", domain.ErrContentNotFound, id)
	}

	data, err := s.content.Get(ctx, ref.Key)
	if err != nil {
		return nil, domain.ContentRef{}, err
	}
	return data, ref, nil
}

// Kinds reports every kind with an adapter and whether it is configured.
func (s *Service) Kinds() []KindInfo {
	infos := make([]KindInfo, 0, len(s.adapters))
	for _, kind := range domain.Kinds() {
		a, ok := s.adapters[kind]
		if !ok {
			continue
		}
		infos = append(infos, KindInfo{
			Kind:         kind,
			Configured:   a.CheckConfig() == nil,
			Asynchronous: a.Asynchronous(),
		})
	}
	return infos
}

func (s *Service) releaseTasks(ctx context.Context, tasks []domain.Task) {
	for i := range tasks {
		s.releaseContent(ctx, tasks[i].ContentKeys())
	}
}

func (s *Service) releaseContent(ctx context.Context, keys []string) {
	if s.content == nil {
		return
	}
	for _, key := range keys {
		if err := s.content.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete stored content", "key", key, "error", redact.Error(err))
		}
	}
}

func contentKeys(v interface{}) []string {
	if keyed, ok := v.(interface{ ContentKeys() []string }); ok {
		return keyed.ContentKeys()
	}
	return nil
}

func resultContent(result domain.Result) (domain.ContentRef, bool) {
	var ref domain.ContentRef
	switch r := result.(type) {
	case domain.SpeechSynthesisResult:
		ref = r.Audio
	case domain.VideoGenerationResult:
		ref = r.Video
	case domain.DocumentExtractionResult:
		ref = r.Document
	}
	return ref, !ref.Empty()
}
