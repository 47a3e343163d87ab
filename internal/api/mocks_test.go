package api

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// MockTaskService is a mock implementation of TaskService for testing
type MockTaskService struct {
	SubmitFn     func(ctx context.Context, req domain.Request) (string, error)
	GetTaskFn    func(id string) (domain.Task, error)
	ListFn       func() []domain.Task
	ListActiveFn func() []domain.Task
	ListByKindFn func(kind domain.Kind) []domain.Task
	RemoveFn     func(ctx context.Context, id string)
	ContentFn    func(ctx context.Context, id string) ([]byte, domain.ContentRef, error)
	KindsFn      func() []task.KindInfo
}

func (m *MockTaskService) Submit(ctx context.Context, req domain.Request) (string, error) {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return "", nil
}

func (m *MockTaskService) GetTask(id string) (domain.Task, error) {
	if m.GetTaskFn != nil {
		return m.GetTaskFn(id)
	}
	return domain.Task{}, domain.ErrTaskNotFound
}

func (m *MockTaskService) List() []domain.Task {
	if m.ListFn != nil {
		return m.ListFn()
	}
	return nil
}

func (m *MockTaskService) ListActive() []domain.Task {
	if m.ListActiveFn != nil {
		return m.ListActiveFn()
	}
	return nil
}

func (m *MockTaskService) ListByKind(kind domain.Kind) []domain.Task {
	if m.ListByKindFn != nil {
		return m.ListByKindFn(kind)
	}
	return nil
}

func (m *MockTaskService) Remove(ctx context.Context, id string) {
	if m.RemoveFn != nil {
		m.RemoveFn(ctx, id)
	}
}

func (m *MockTaskService) Content(ctx context.Context, id string) ([]byte, domain.ContentRef, error) {
	if m.ContentFn != nil {
		return m.ContentFn(ctx, id)
	}
	return nil, domain.ContentRef{}, domain.ErrContentNotFound
}

func (m *MockTaskService) Kinds() []task.KindInfo {
	if m.KindsFn != nil {
		return m.KindsFn()
	}
	return nil
}

// recordingUploads keeps uploaded files in memory.
type recordingUploads struct {
	mu    sync.Mutex
	files map[string][]byte
	types map[string]string
	err   error
}

func newRecordingUploads() *recordingUploads {
	return &recordingUploads{files: map[string][]byte{}, types: map[string]string{}}
}

func (u *recordingUploads) Put(_ context.Context, key string, data []byte, contentType string) error {
	if u.err != nil {
		return u.err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[key] = data
	u.types[key] = contentType
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(svc TaskService, uploads UploadStore) *chi.Mux {
	h := NewTaskHandler(svc, uploads, discardLogger())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}
