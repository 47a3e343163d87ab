package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/events"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const waitFor = 2 * time.Second
const tick = time.Millisecond

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// eventRecorder collects every event emitted by a registry
type eventRecorder struct {
	mu     sync.Mutex
	events []events.TaskEvent
}

func (r *eventRecorder) EmitEvent(_ context.Context, e *events.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *eventRecorder) statuses(taskID string) []domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Status
	for _, e := range r.events {
		if e.TaskID == taskID && e.Type == events.EventStatusChanged {
			out = append(out, e.Status)
		}
	}
	return out
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestRegistry() (*Registry, *clock.Mock, *eventRecorder) {
	clk := clock.NewMock(epoch)
	rec := &eventRecorder{}
	return NewRegistry(clk, rec, testLogger()), clk, rec
}

func videoRequest() domain.VideoGenerationRequest {
	return domain.VideoGenerationRequest{Prompt: "cat", DurationSeconds: 5}.WithDefaults()
}

func documentRequest() domain.DocumentExtractionRequest {
	return domain.DocumentExtractionRequest{
		FileName: "report.pdf",
		FileSize: 4,
		Document: domain.ContentRef{Key: "uploads/report.pdf", ContentType: "application/pdf", Size: 4},
	}.WithDefaults()
}

func synthesisRequest() domain.SpeechSynthesisRequest {
	return domain.SpeechSynthesisRequest{Text: "hello", Voice: "alloy"}.WithDefaults()
}

// addTask registers a new pending task for req and returns it
func addTask(t *testing.T, r *Registry, req domain.Request) domain.Task {
	t.Helper()
	task, err := domain.NewTask(req, epoch)
	require.NoError(t, err)
	require.NoError(t, r.Add(*task))
	return *task
}

// processingTask registers a task already handed to an external job
func processingTask(t *testing.T, r *Registry, req domain.Request, jobID string) domain.Task {
	t.Helper()
	task := addTask(t, r, req)
	updated, err := r.Update(task.ID, domain.Processing(jobID))
	require.NoError(t, err)
	return updated
}

func waitStatus(t *testing.T, r *Registry, id string, want domain.Status) domain.Task {
	t.Helper()
	var got domain.Task
	require.Eventually(t, func() bool {
		task, err := r.Get(id)
		if err != nil {
			return false
		}
		got = task
		return task.Status == want
	}, waitFor, tick, "task %s never reached %s", id, want)
	return got
}
