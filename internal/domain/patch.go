package domain

import "time"

// Patch describes a partial update to a task. Nil fields are left untouched.
// Kind and CreatedAt exist only so callers attempting to change them can be
// rejected; a registry never applies them.
type Patch struct {
	Status         *Status
	Result         Result
	Error          *TaskError
	ExternalJobRef *string
	Kind           *Kind
	CreatedAt      *time.Time
}

// Processing moves a task to processing with the given external job reference.
// An empty jobRef leaves the reference untouched.
func Processing(jobRef string) Patch {
	s := StatusProcessing
	p := Patch{Status: &s}
	if jobRef != "" {
		p.ExternalJobRef = &jobRef
	}
	return p
}

// Completed moves a task to completed with the given result.
func Completed(result Result) Patch {
	s := StatusCompleted
	return Patch{Status: &s, Result: result}
}

// Failed moves a task to failed with the given error.
func Failed(taskErr *TaskError) Patch {
	s := StatusFailed
	return Patch{Status: &s, Error: taskErr}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Result == nil && p.Error == nil &&
		p.ExternalJobRef == nil && p.Kind == nil && p.CreatedAt == nil
}
