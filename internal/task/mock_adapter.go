package task

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// MockSyncAdapter implements SyncAdapter for testing
type MockSyncAdapter struct {
	KindValue domain.Kind
	ConfigErr error
	InvokeFn  func(ctx context.Context, req domain.Request) (domain.Result, error)

	invokes atomic.Int32
}

// NewMockSyncAdapter creates a mock that completes every task with result
func NewMockSyncAdapter(kind domain.Kind, result domain.Result) *MockSyncAdapter {
	return &MockSyncAdapter{
		KindValue: kind,
		InvokeFn: func(context.Context, domain.Request) (domain.Result, error) {
			return result, nil
		},
	}
}

func (m *MockSyncAdapter) Kind() domain.Kind  { return m.KindValue }
func (m *MockSyncAdapter) Asynchronous() bool { return false }
func (m *MockSyncAdapter) CheckConfig() error { return m.ConfigErr }

// Invoke records the call and delegates to InvokeFn
func (m *MockSyncAdapter) Invoke(ctx context.Context, req domain.Request) (domain.Result, error) {
	m.invokes.Add(1)
	return m.InvokeFn(ctx, req)
}

// Invokes returns how many times Invoke was called
func (m *MockSyncAdapter) Invokes() int { return int(m.invokes.Load()) }

// MockJobAdapter implements JobAdapter for testing
type MockJobAdapter struct {
	KindValue domain.Kind
	Policy    PollPolicy
	ConfigErr error
	SubmitFn  func(ctx context.Context, req domain.Request) (string, error)
	QueryFn   func(ctx context.Context, jobID string, attempt int) (JobStatus, error)
	FetchFn   func(ctx context.Context, task domain.Task, resultRef string) (domain.Result, error)

	submits atomic.Int32
	queries atomic.Int32
	fetches atomic.Int32
}

// NewMockJobAdapter creates a mock whose jobs report running forever
func NewMockJobAdapter(kind domain.Kind, policy PollPolicy) *MockJobAdapter {
	return &MockJobAdapter{
		KindValue: kind,
		Policy:    policy,
		SubmitFn: func(context.Context, domain.Request) (string, error) {
			return "job-1", nil
		},
		QueryFn: func(context.Context, string, int) (JobStatus, error) {
			return JobStatus{State: JobRunning}, nil
		},
		FetchFn: func(context.Context, domain.Task, string) (domain.Result, error) {
			return nil, domain.NewTaskError(domain.ErrorKindResultFetch, "no fetch configured")
		},
	}
}

func (m *MockJobAdapter) Kind() domain.Kind      { return m.KindValue }
func (m *MockJobAdapter) Asynchronous() bool     { return true }
func (m *MockJobAdapter) CheckConfig() error     { return m.ConfigErr }
func (m *MockJobAdapter) PollPolicy() PollPolicy { return m.Policy }

// SubmitJob records the call and delegates to SubmitFn
func (m *MockJobAdapter) SubmitJob(ctx context.Context, req domain.Request) (string, error) {
	m.submits.Add(1)
	return m.SubmitFn(ctx, req)
}

// QueryJobStatus records the call and delegates to QueryFn with the
// 1-based query number
func (m *MockJobAdapter) QueryJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	n := m.queries.Add(1)
	return m.QueryFn(ctx, jobID, int(n))
}

// FetchResult records the call and delegates to FetchFn
func (m *MockJobAdapter) FetchResult(ctx context.Context, task domain.Task, resultRef string) (domain.Result, error) {
	m.fetches.Add(1)
	return m.FetchFn(ctx, task, resultRef)
}

// Submits returns how many times SubmitJob was called
func (m *MockJobAdapter) Submits() int { return int(m.submits.Load()) }

// Queries returns how many times QueryJobStatus was called
func (m *MockJobAdapter) Queries() int { return int(m.queries.Load()) }

// Fetches returns how many times FetchResult was called
func (m *MockJobAdapter) Fetches() int { return int(m.fetches.Load()) }
