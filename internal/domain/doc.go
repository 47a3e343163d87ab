// Package domain contains the core entities of the media task service: the
// Task record, the set of task kinds with their kind-specific request and
// result shapes, and the error taxonomy recorded on failed tasks. It is
// independent of any transport, storage, or external service client.
package domain
