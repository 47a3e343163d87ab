// Package events carries task lifecycle notifications from the registry to
// whoever projects them outward.
//
// The registry emits a TaskEvent after every status change and on removal.
// Handlers (a logging projector, a NATS publisher) subscribe through an
// EventEmitter, so the registry never depends on its consumers.
package events
