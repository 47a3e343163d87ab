package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/redact"
)

// TrackerState is the position of a job tracker in its state machine.
type TrackerState string

// Tracker states
const (
	TrackerSubmitted TrackerState = "submitted"
	TrackerPolling   TrackerState = "polling"
	TrackerSucceeded TrackerState = "succeeded"
	TrackerFailed    TrackerState = "failed"
	TrackerTimedOut  TrackerState = "timed_out"

	// TrackerCanceled means the task was removed or finalized elsewhere
	TrackerCanceled TrackerState = "canceled"
)

// Done reports whether the tracker has stopped polling in this state.
func (s TrackerState) Done() bool {
	switch s {
	case TrackerSucceeded, TrackerFailed, TrackerTimedOut, TrackerCanceled:
		return true
	default:
		return false
	}
}

// TrackerTransition describes one tracker state change.
type TrackerTransition struct {
	TaskID string
	Kind   domain.Kind
	JobID  string
	From   TrackerState
	To     TrackerState
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithTransitionObserver registers fn to be called on every tracker state
// change. fn runs on the polling goroutine and must not block.
func WithTransitionObserver(fn func(TrackerTransition)) PollerOption {
	return func(p *Poller) {
		p.observe = fn
	}
}

// jobTracker follows one external job until it reaches an outcome.
type jobTracker struct {
	taskID  string
	kind    domain.Kind
	jobID   string
	adapter JobAdapter
	policy  PollPolicy

	state    TrackerState
	attempts int

	// fetchRef is set once the job succeeded but its payload could not be
	// retrieved; later attempts retry only the fetch
	fetchRef string
	lastErr  *domain.TaskError
}

// Poller drives external jobs to a terminal task status. Bounded kinds get a
// loop per job; presence-driven kinds share a loop per kind.
type Poller struct {
	registry *Registry
	clock    clock.Clock
	release  func(ctx context.Context, keys []string)
	observe  func(TrackerTransition)
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	stopped   bool
	jobs      map[string]*clock.Schedule
	kindLoops map[domain.Kind]*clock.Schedule
	byKind    map[domain.Kind]map[string]*jobTracker
}

// NewPoller creates a poller that writes outcomes into registry. release is
// called with the blob keys of a fetched result that could not be stored
// because the task vanished meanwhile; it may be nil.
func NewPoller(
	registry *Registry,
	c clock.Clock,
	release func(ctx context.Context, keys []string),
	logger *slog.Logger,
	opts ...PollerOption,
) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	if release == nil {
		release = func(context.Context, []string) {}
	}
	p := &Poller{
		registry:  registry,
		clock:     c,
		release:   release,
		logger:    logger.With("component", "poller"),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]*clock.Schedule),
		kindLoops: make(map[domain.Kind]*clock.Schedule),
		byKind:    make(map[domain.Kind]map[string]*jobTracker),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Track starts polling jobID on behalf of the task. The task must already be
// processing with jobID as its external reference.
func (p *Poller) Track(task domain.Task, jobID string, adapter JobAdapter) {
	policy := adapter.PollPolicy()
	t := &jobTracker{
		taskID:  task.ID,
		kind:    task.Kind,
		jobID:   jobID,
		adapter: adapter,
		policy:  policy,
	}
	p.transition(t, TrackerSubmitted, p.logger.With("task_id", task.ID, "job_id", jobID))

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.logger.Warn("poller stopped, job not tracked",
			"task_id", task.ID,
			"job_id", jobID)
		return
	}

	p.logger.Debug("tracking external job",
		"task_id", task.ID,
		"task_kind", task.Kind,
		"job_id", jobID,
		"interval", policy.Interval,
		"max_attempts", policy.MaxAttempts)

	if policy.Mode == PollPerKind {
		p.trackPerKind(t)
		return
	}

	p.jobs[t.taskID] = clock.Every(p.clock, policy.Interval, func(time.Time) bool {
		if p.step(p.ctx, t) {
			return true
		}
		p.mu.Lock()
		delete(p.jobs, t.taskID)
		p.mu.Unlock()
		return false
	}, clock.WithImmediateRun())
}

// trackPerKind registers the tracker with its kind loop, starting the loop if
// none is running. Callers must hold p.mu.
func (p *Poller) trackPerKind(t *jobTracker) {
	trackers, ok := p.byKind[t.kind]
	if !ok {
		trackers = make(map[string]*jobTracker)
		p.byKind[t.kind] = trackers
	}
	trackers[t.taskID] = t

	if _, running := p.kindLoops[t.kind]; running {
		return
	}

	kind := t.kind
	p.logger.Debug("starting kind poll loop", "task_kind", kind, "interval", t.policy.Interval)
	p.kindLoops[kind] = clock.Every(p.clock, t.policy.Interval, func(time.Time) bool {
		return p.pollKind(kind)
	})
}

// pollKind runs one round over every tracker of the kind. It returns false,
// ending the loop, once no tracker of the kind remains.
func (p *Poller) pollKind(kind domain.Kind) bool {
	p.mu.Lock()
	round := make([]*jobTracker, 0, len(p.byKind[kind]))
	for _, t := range p.byKind[kind] {
		round = append(round, t)
	}
	p.mu.Unlock()

	var finished []string
	for _, t := range round {
		if p.ctx.Err() != nil {
			break
		}
		if !p.step(p.ctx, t) {
			finished = append(finished, t.taskID)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range finished {
		delete(p.byKind[kind], id)
	}
	if len(p.byKind[kind]) == 0 {
		delete(p.kindLoops, kind)
		p.logger.Debug("no jobs left, stopping kind poll loop", "task_kind", kind)
		return false
	}
	return true
}

// step performs one attempt for the tracker and reports whether polling
// should continue.
func (p *Poller) step(ctx context.Context, t *jobTracker) bool {
	logger := p.logger.With(
		"task_id", t.taskID,
		"task_kind", t.kind,
		"job_id", t.jobID,
	)

	task, err := p.registry.Get(t.taskID)
	if err != nil || task.Status.IsTerminal() {
		logger.Debug("task removed or finalized, stopping tracker")
		p.transition(t, TrackerCanceled, logger)
		return false
	}

	p.transition(t, TrackerPolling, logger)
	t.attempts++
	logger = logger.With("attempt", t.attempts)

	if t.fetchRef != "" {
		return p.fetch(ctx, t, task, logger)
	}

	status, err := t.adapter.QueryJobStatus(ctx, t.jobID)
	if err != nil {
		t.lastErr = domain.NewTaskError(domain.ClassifyError(err, domain.ErrorKindNetwork), redact.Error(err))
		logger.Warn("job status query failed", "error", t.lastErr.Message)
		return p.continueOrTimeout(t, logger)
	}

	switch status.State {
	case JobSucceeded:
		if status.ResultRef == "" {
			p.fail(t, TrackerFailed, domain.NewTaskError(domain.ErrorKindExternalJobFailed, "no result produced"), logger)
			return false
		}
		t.fetchRef = status.ResultRef
		return p.fetch(ctx, t, task, logger)

	case JobFailed:
		msg := status.Message
		if msg == "" {
			msg = "external job failed"
		}
		p.fail(t, TrackerFailed, domain.NewTaskError(domain.ErrorKindExternalJobFailed, redact.String(msg)), logger)
		return false

	default:
		logger.Debug("job still running", "job_state", status.State)
		return p.continueOrTimeout(t, logger)
	}
}

func (p *Poller) fetch(ctx context.Context, t *jobTracker, task domain.Task, logger *slog.Logger) bool {
	result, err := t.adapter.FetchResult(ctx, task, t.fetchRef)
	if err != nil {
		t.lastErr = domain.NewTaskError(domain.ErrorKindResultFetch, redact.Error(err))
		logger.Warn("result fetch failed, will retry", "error", t.lastErr.Message)
		return p.continueOrTimeout(t, logger)
	}

	if _, err := p.registry.Update(t.taskID, domain.Completed(result)); err != nil {
		p.transition(t, TrackerCanceled, logger)
		if keyed, ok := result.(interface{ ContentKeys() []string }); ok {
			p.release(ctx, keyed.ContentKeys())
		}
		logger.Debug("task vanished before result could be stored", "error", err)
		return false
	}

	logger.Info("external job completed")
	p.transition(t, TrackerSucceeded, logger)
	return false
}

func (p *Poller) continueOrTimeout(t *jobTracker, logger *slog.Logger) bool {
	if t.policy.MaxAttempts <= 0 || t.attempts < t.policy.MaxAttempts {
		return true
	}

	msg := fmt.Sprintf("job %s did not finish after %d attempts", t.jobID, t.attempts)
	if t.lastErr != nil {
		msg = fmt.Sprintf("%s; last error: %s", msg, t.lastErr.Error())
	}
	p.fail(t, TrackerTimedOut, domain.NewTaskError(domain.ErrorKindTimeout, msg), logger)
	return false
}

func (p *Poller) fail(t *jobTracker, state TrackerState, taskErr *domain.TaskError, logger *slog.Logger) {
	if _, err := p.registry.Update(t.taskID, domain.Failed(taskErr)); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) || errors.Is(err, domain.ErrIllegalTransition) {
			logger.Debug("task vanished before failure could be recorded", "error", err)
			p.transition(t, TrackerCanceled, logger)
			return
		}
		logger.Error("failed to record job failure", "error", err)
	} else {
		logger.Warn("external job did not complete",
			"error_kind", taskErr.Kind,
			"error", taskErr.Message)
	}
	p.transition(t, state, logger)
}

// transition moves the tracker to state and notifies the observer. Only the
// goroutine polling the tracker calls it after Track returns.
func (p *Poller) transition(t *jobTracker, state TrackerState, logger *slog.Logger) {
	if t.state == state {
		return
	}
	from := t.state
	t.state = state
	logger.Debug("tracker state changed", "from", from, "to", state)
	if p.observe != nil {
		p.observe(TrackerTransition{
			TaskID: t.taskID,
			Kind:   t.kind,
			JobID:  t.jobID,
			From:   from,
			To:     state,
		})
	}
}

// Tracking returns the number of jobs currently being polled.
func (p *Poller) Tracking() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.jobs)
	for _, trackers := range p.byKind {
		n += len(trackers)
	}
	return n
}

// KindLoopRunning reports whether the shared loop for kind is active.
func (p *Poller) KindLoopRunning(kind domain.Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.kindLoops[kind]
	return ok
}

// Stop cancels in-flight queries and waits for every loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	schedules := make([]*clock.Schedule, 0, len(p.jobs)+len(p.kindLoops))
	for _, s := range p.jobs {
		schedules = append(schedules, s)
	}
	for _, s := range p.kindLoops {
		schedules = append(schedules, s)
	}
	p.mu.Unlock()

	p.cancel()
	for _, s := range schedules {
		s.Stop()
	}
	p.logger.Info("poller stopped", "loops", len(schedules))
}
