package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/mediaflow-api/internal/api/shared"
	"github.com/stretchr/testify/assert"
)

func TestNewTraceMiddleware(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{name: "generated", incoming: ""},
		{name: "caller supplied", incoming: "client-trace-0001", reused: true},
		{name: "malformed caller id", incoming: "bad id with spaces"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := NewTraceMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = shared.GetTraceID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.incoming != "" {
				req.Header.Set(shared.TraceIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(shared.TraceIDHeader))
			if tc.reused {
				assert.Equal(t, tc.incoming, seen)
			} else {
				assert.NotEqual(t, tc.incoming, seen)
			}
		})
	}
}

func TestTraceMiddleware_DefaultLogger(t *testing.T) {
	t.Parallel()

	var seen string
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 32)
}
