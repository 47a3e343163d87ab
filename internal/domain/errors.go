package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidKind is returned when a task kind is not one of the known kinds.
	ErrInvalidKind = errors.New("invalid task kind")

	// ErrInvalidStatus is returned when a task status is not one of the known statuses.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrTaskNotFound is returned when no task exists for the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateID is returned when a task with the same ID already exists.
	ErrDuplicateID = errors.New("duplicate task ID")

	// ErrIllegalTransition is returned when an update would move a task
	// backwards in its lifecycle or modify an immutable field.
	ErrIllegalTransition = errors.New("illegal task transition")
)

// ErrContentNotFound is returned when a stored payload does not exist.
var ErrContentNotFound = errors.New("content not found")
