package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/events"
)

// Registry is the in-memory store of task records. Every operation is atomic
// with respect to the others, and every read returns copies.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	order []string

	clock   clock.Clock
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. Events for status changes and
// removals are sent to emitter after the registry lock is released.
func NewRegistry(c clock.Clock, emitter events.EventEmitter, logger *slog.Logger) *Registry {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Registry{
		tasks:   make(map[string]domain.Task),
		clock:   c,
		emitter: emitter,
		logger:  logger.With("component", "task_registry"),
	}
}

// Add inserts a new task. It returns domain.ErrDuplicateID if a task with the
// same ID is already present.
func (r *Registry) Add(task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.tasks[task.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, task.ID)
	}
	stored := task.Clone()
	r.tasks[task.ID] = stored
	r.order = append(r.order, task.ID)
	r.mu.Unlock()

	r.emit(events.NewStatusChangedEvent(stored, "", r.clock.Now()))
	return nil
}

// Update merges the patch into the task and returns the updated copy.
//
// A terminal task never changes: re-asserting its status is a silent no-op,
// anything else fails with domain.ErrIllegalTransition. The first terminal
// status stamps CompletedAt and clears the external job reference. Kind and
// CreatedAt are immutable.
func (r *Registry) Update(id string, patch domain.Patch) (domain.Task, error) {
	r.mu.Lock()

	cur, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	next, changed, err := r.apply(cur, patch)
	if err != nil {
		r.mu.Unlock()
		return cur.Clone(), err
	}
	r.tasks[id] = next
	r.mu.Unlock()

	if changed {
		r.emit(events.NewStatusChangedEvent(next, cur.Status, r.clock.Now()))
	}
	return next.Clone(), nil
}

// apply computes the merged task. Callers must hold the write lock.
func (r *Registry) apply(cur domain.Task, patch domain.Patch) (domain.Task, bool, error) {
	if patch.Empty() {
		return cur, false, nil
	}
	if patch.Kind != nil && *patch.Kind != cur.Kind {
		return cur, false, fmt.Errorf("%w: kind of task %s cannot change", domain.ErrIllegalTransition, cur.ID)
	}
	if patch.CreatedAt != nil && !patch.CreatedAt.Equal(cur.CreatedAt) {
		return cur, false, fmt.Errorf("%w: created_at of task %s cannot change", domain.ErrIllegalTransition, cur.ID)
	}

	if cur.Status.IsTerminal() {
		sameStatus := patch.Status == nil || *patch.Status == cur.Status
		if sameStatus && patch.Result == nil && patch.Error == nil && patch.ExternalJobRef == nil {
			return cur, false, nil
		}
		return cur, false, fmt.Errorf("%w: task %s is already %s", domain.ErrIllegalTransition, cur.ID, cur.Status)
	}

	next := cur.Clone()
	if patch.Status != nil {
		if !cur.Status.CanTransitionTo(*patch.Status) {
			return cur, false, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, cur.Status, *patch.Status)
		}
		next.Status = *patch.Status
	}
	if patch.Result != nil {
		if patch.Result.Kind() != cur.Kind {
			return cur, false, fmt.Errorf("%w: %s result for %s task", domain.ErrIllegalTransition, patch.Result.Kind(), cur.Kind)
		}
		next.Result = patch.Result
	}
	if patch.Error != nil {
		e := *patch.Error
		next.Error = &e
	}
	if patch.ExternalJobRef != nil {
		next.ExternalJobRef = *patch.ExternalJobRef
	}

	if next.Status.IsTerminal() {
		next.ExternalJobRef = ""
		if next.CompletedAt == nil {
			now := r.clock.Now().UTC()
			next.CompletedAt = &now
		}
	}

	if err := next.Validate(); err != nil {
		return cur, false, fmt.Errorf("%w: %v", domain.ErrIllegalTransition, err)
	}

	return next, next.Status != cur.Status, nil
}

// Remove deletes the task. It returns the removed task and true, or false if
// no such task existed. Removing an unknown ID is not an error.
func (r *Registry) Remove(id string) (domain.Task, bool) {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
		r.order = removeID(r.order, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.Task{}, false
	}
	r.emit(events.NewRemovedEvent(task, r.clock.Now()))
	return task.Clone(), true
}

// RemoveWhere atomically deletes every task matching pred and returns them in
// insertion order.
func (r *Registry) RemoveWhere(pred func(domain.Task) bool) []domain.Task {
	r.mu.Lock()
	var removed []domain.Task
	kept := r.order[:0]
	for _, id := range r.order {
		task := r.tasks[id]
		if pred(task) {
			removed = append(removed, task.Clone())
			delete(r.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	r.mu.Unlock()

	now := r.clock.Now()
	for _, task := range removed {
		r.emit(events.NewRemovedEvent(task, now))
	}
	return removed
}

// Get returns a copy of the task or domain.ErrTaskNotFound.
func (r *Registry) Get(id string) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return task.Clone(), nil
}

// List returns every task in insertion order.
func (r *Registry) List() []domain.Task {
	return r.filter(func(domain.Task) bool { return true })
}

// ListByKind returns the tasks of one kind in insertion order.
func (r *Registry) ListByKind(kind domain.Kind) []domain.Task {
	return r.filter(func(t domain.Task) bool { return t.Kind == kind })
}

// ListActive returns the pending and processing tasks in insertion order.
func (r *Registry) ListActive() []domain.Task {
	return r.filter(func(t domain.Task) bool { return !t.Status.IsTerminal() })
}

// HasActive reports whether any non-terminal task of the kind exists.
func (r *Registry) HasActive(kind domain.Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, task := range r.tasks {
		if task.Kind == kind && !task.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// Len returns the number of tasks held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

func (r *Registry) filter(keep func(domain.Task) bool) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Task, 0, len(r.order))
	for _, id := range r.order {
		task := r.tasks[id]
		if keep(task) {
			out = append(out, task.Clone())
		}
	}
	return out
}

func (r *Registry) emit(event *events.TaskEvent) {
	// Handlers log their own failures
	if err := r.emitter.EmitEvent(context.Background(), event); err != nil {
		r.logger.Debug("event handler reported an error",
			"event_type", event.Type,
			"task_id", event.TaskID,
			"error", err)
	}
}

func removeID(ids []string, id string) []string {
	for i, other := range ids {
		if other == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
