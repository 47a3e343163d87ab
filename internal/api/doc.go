// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts HTTP to the task service: uploads are
// stored before submission, task snapshots are rendered as JSON and stored
// results are streamed back to clients.
package api
