// Package middleware provides HTTP middleware shared by every API route.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/mediaflow-api/internal/api/shared"
)

// NewTraceMiddleware returns middleware that adds a trace ID to the request
// context and echoes it in the X-Request-ID response header. A well-formed
// X-Request-ID from the caller is reused.
func NewTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)
			w.Header().Set(shared.TraceIDHeader, traceID)

			logger.DebugContext(ctx, "request started",
				slog.String("trace_id", traceID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TraceMiddleware is NewTraceMiddleware with the default logger.
func TraceMiddleware(next http.Handler) http.Handler {
	return NewTraceMiddleware(nil)(next)
}
