package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a task failed.
type ErrorKind string

// Failure classes recorded on tasks
const (
	// ErrorKindConfiguration means endpoint, credential or deployment settings are missing.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindNetwork is a transport failure during submit, status query or fetch.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindExternalJobFailed means the external service rejected or failed the work.
	ErrorKindExternalJobFailed ErrorKind = "external_job_failed"

	// ErrorKindTimeout means the attempt budget ran out before the job finished.
	// A caller may resubmit; the content was not necessarily rejected.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindResultFetch means the job succeeded but its payload could not be retrieved.
	ErrorKindResultFetch ErrorKind = "result_fetch"

	// ErrorKindCanceled means the service shut down before the task ran.
	ErrorKindCanceled ErrorKind = "canceled"
)

// Sentinel errors matching each ErrorKind. A *TaskError matches the sentinel
// of its kind under errors.Is.
var (
	ErrConfiguration     = errors.New("service not configured")
	ErrNetwork           = errors.New("network error")
	ErrExternalJobFailed = errors.New("external job failed")
	ErrTimeout           = errors.New("job timed out")
	ErrResultFetch       = errors.New("result fetch failed")
	ErrCanceled          = errors.New("task canceled")
)

// sentinel returns the package-level error value for the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorKindConfiguration:
		return ErrConfiguration
	case ErrorKindNetwork:
		return ErrNetwork
	case ErrorKindExternalJobFailed:
		return ErrExternalJobFailed
	case ErrorKindTimeout:
		return ErrTimeout
	case ErrorKindResultFetch:
		return ErrResultFetch
	case ErrorKindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// TaskError is the structured failure description stored on a failed task.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewTaskError creates a TaskError of the given kind.
func NewTaskError(kind ErrorKind, message string) *TaskError {
	return &TaskError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match a TaskError against the sentinel of its kind.
func (e *TaskError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// ClassifyError returns the ErrorKind an arbitrary error maps to, falling
// back to the given kind when the error carries no classification.
func ClassifyError(err error, fallback ErrorKind) ErrorKind {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrNetwork):
		return ErrorKindNetwork
	case errors.Is(err, ErrExternalJobFailed):
		return ErrorKindExternalJobFailed
	case errors.Is(err, ErrTimeout):
		return ErrorKindTimeout
	case errors.Is(err, ErrResultFetch):
		return ErrorKindResultFetch
	case errors.Is(err, ErrCanceled):
		return ErrorKindCanceled
	default:
		return fallback
	}
}
