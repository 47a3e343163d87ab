// Package shared holds the request context helpers, request decoding and
// response writers used by every HTTP handler.
package shared

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of values stored in request contexts.
type ContextKey string

// TraceIDKey is the context key for the trace ID of a request.
const TraceIDKey ContextKey = "traceID"

// TraceIDHeader carries a caller-supplied trace ID and echoes it back.
const TraceIDHeader = "X-Request-ID"

// acceptedTraceID limits caller-supplied IDs to a safe, loggable shape.
var acceptedTraceID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// SetTraceID stores a trace ID in the context. An empty or malformed
// incoming ID is replaced with a generated one.
func SetTraceID(ctx context.Context, incoming string) context.Context {
	traceID := incoming
	if !acceptedTraceID.MatchString(traceID) {
		traceID = generateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns a random 32-character hex string.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
