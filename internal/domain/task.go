package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which external operation a task tracks.
type Kind string

// Known task kinds
const (
	KindSpeechSynthesis     Kind = "speech-synthesis"
	KindSpeechTranscription Kind = "speech-transcription"
	KindVideoGeneration     Kind = "video-generation"
	KindDocumentExtraction  Kind = "document-extraction"
)

// Kinds returns every known task kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindSpeechSynthesis,
		KindSpeechTranscription,
		KindVideoGeneration,
		KindDocumentExtraction,
	}
}

// ParseKind converts a string into a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSpeechSynthesis, KindSpeechTranscription, KindVideoGeneration, KindDocumentExtraction:
		return true
	default:
		return false
	}
}

// Asynchronous reports whether tasks of this kind are fulfilled by an
// external job that has to be polled.
func (k Kind) Asynchronous() bool {
	return k == KindVideoGeneration || k == KindDocumentExtraction
}

// Status represents the lifecycle state of a task
type Status string

// Possible task status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether a task may move from s to next.
// Staying in the same non-terminal status is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next.Valid()
	case StatusProcessing:
		return next == StatusProcessing || next.IsTerminal()
	default:
		return false
	}
}

// Task is the unit of tracked work: one external operation, synchronous or
// polling-based, from submission until a terminal outcome.
type Task struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Request        Request    `json:"request"`
	Result         Result     `json:"result,omitempty"`
	Error          *TaskError `json:"error,omitempty"`
	ExternalJobRef string     `json:"external_job_ref,omitempty"`
}

// NewTask creates a pending task for the given request.
// Returns an error if the request is missing or invalid.
func NewTask(req Request, now time.Time) (*Task, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", ErrValidation)
	}
	if !req.Kind().Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind())
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &Task{
		ID:        uuid.New().String(),
		Kind:      req.Kind(),
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		Request:   req,
	}, nil
}

// Validate checks the invariants that tie status, result, error and the
// external job reference together.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}

	switch t.Status {
	case StatusCompleted:
		if t.Result == nil {
			return fmt.Errorf("%w: completed task requires a result", ErrValidation)
		}
		if t.Error != nil {
			return fmt.Errorf("%w: completed task cannot carry an error", ErrValidation)
		}
	case StatusFailed:
		if t.Error == nil {
			return fmt.Errorf("%w: failed task requires an error", ErrValidation)
		}
		if t.Result != nil {
			return fmt.Errorf("%w: failed task cannot carry a result", ErrValidation)
		}
	default:
		if t.Result != nil || t.Error != nil {
			return fmt.Errorf("%w: %s task cannot carry a result or error", ErrValidation, t.Status)
		}
	}

	if t.Status == StatusProcessing && t.Kind.Asynchronous() && t.ExternalJobRef == "" {
		return fmt.Errorf("%w: processing %s task requires an external job reference", ErrValidation, t.Kind)
	}
	if t.Status.IsTerminal() && t.ExternalJobRef != "" {
		return fmt.Errorf("%w: terminal task cannot keep an external job reference", ErrValidation)
	}
	if t.Status.IsTerminal() != (t.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at must be set exactly when status is terminal", ErrValidation)
	}

	return nil
}

// Clone returns a copy that shares no mutable pointers with t.
// Request and Result values are treated as immutable once set.
func (t Task) Clone() Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	if t.Error != nil {
		e := *t.Error
		t.Error = &e
	}
	return t
}

// ContentKeys lists every blob key referenced by the task's request and result.
func (t *Task) ContentKeys() []string {
	var keys []string
	if c, ok := t.Request.(interface{ ContentKeys() []string }); ok {
		keys = append(keys, c.ContentKeys()...)
	}
	if c, ok := t.Result.(interface{ ContentKeys() []string }); ok {
		keys = append(keys, c.ContentKeys()...)
	}
	return keys
}
