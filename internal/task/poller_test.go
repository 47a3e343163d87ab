package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoInterval = 5 * time.Second

func videoPolicy(maxAttempts int) PollPolicy {
	return PollPolicy{Interval: videoInterval, MaxAttempts: maxAttempts, Mode: PollPerJob}
}

func newTestPoller(r *Registry, clk *clock.Mock) *Poller {
	p := NewPoller(r, clk, nil, testLogger())
	return p
}

// waitQueries blocks until the adapter has seen n status queries
func waitQueries(t *testing.T, a *MockJobAdapter, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return a.Queries() >= n }, waitFor, tick,
		"expected %d queries, saw %d", n, a.Queries())
}

// driveQueries advances the clock one interval at a time until the adapter
// has seen n queries in total
func driveQueries(t *testing.T, clk *clock.Mock, a *MockJobAdapter, interval time.Duration, n int) {
	t.Helper()
	for a.Queries() < n {
		next := a.Queries() + 1
		clk.Advance(interval)
		waitQueries(t, a, next)
	}
}

func TestPoller_JobSucceeds(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	adapter.QueryFn = func(_ context.Context, jobID string, attempt int) (JobStatus, error) {
		if attempt <= 3 {
			return JobStatus{State: JobRunning}, nil
		}
		return JobStatus{State: JobSucceeded, ResultRef: "g1"}, nil
	}
	adapter.FetchFn = func(_ context.Context, task domain.Task, ref string) (domain.Result, error) {
		return domain.VideoGenerationResult{JobID: task.ExternalJobRef, GenerationID: ref}, nil
	}

	task := processingTask(t, r, videoRequest(), "abc")
	p.Track(task, "abc", adapter)

	// First query runs immediately
	waitQueries(t, adapter, 1)
	driveQueries(t, clk, adapter, videoInterval, 4)

	done := waitStatus(t, r, task.ID, domain.StatusCompleted)
	result, ok := done.Result.(domain.VideoGenerationResult)
	require.True(t, ok)
	assert.Equal(t, "g1", result.GenerationID)
	assert.Equal(t, "abc", result.JobID)
	assert.Empty(t, done.ExternalJobRef)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, 1, adapter.Fetches())

	require.Eventually(t, func() bool { return p.Tracking() == 0 }, waitFor, tick)
	assert.Equal(t, 0, clk.TickerCount())
}

func TestPoller_TimesOutAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	const maxAttempts = 60

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(maxAttempts))
	task := processingTask(t, r, videoRequest(), "slow-job")
	p.Track(task, "slow-job", adapter)

	waitQueries(t, adapter, 1)
	driveQueries(t, clk, adapter, videoInterval, maxAttempts)

	failed := waitStatus(t, r, task.ID, domain.StatusFailed)
	require.NotNil(t, failed.Error)
	assert.Equal(t, domain.ErrorKindTimeout, failed.Error.Kind)
	assert.ErrorIs(t, failed.Error, domain.ErrTimeout)
	assert.Empty(t, failed.ExternalJobRef)

	// No further queries after the budget is spent
	require.Eventually(t, func() bool { return clk.TickerCount() == 0 }, waitFor, tick)
	clk.Advance(10 * videoInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, maxAttempts, adapter.Queries())
}

func TestPoller_ExternalFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  JobStatus
		message string
	}{
		{"failed with reason", JobStatus{State: JobFailed, Message: "content policy violation"}, "content policy violation"},
		{"failed without reason", JobStatus{State: JobFailed}, "external job failed"},
		{"succeeded without result", JobStatus{State: JobSucceeded}, "no result produced"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, clk, rec := newTestRegistry()
			p := newTestPoller(r, clk)
			defer p.Stop()

			adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
			adapter.QueryFn = func(context.Context, string, int) (JobStatus, error) {
				return tc.status, nil
			}

			task := processingTask(t, r, videoRequest(), "job")
			p.Track(task, "job", adapter)

			failed := waitStatus(t, r, task.ID, domain.StatusFailed)
			assert.Equal(t, domain.ErrorKindExternalJobFailed, failed.Error.Kind)
			assert.Equal(t, tc.message, failed.Error.Message)
			assert.Equal(t, 1, adapter.Queries())
			assert.Equal(t, 0, adapter.Fetches())
			assert.Equal(t,
				[]domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusFailed},
				rec.statuses(task.ID))
		})
	}
}

func TestPoller_NetworkErrorsConsumeAttempts(t *testing.T) {
	t.Parallel()

	t.Run("recovers within budget", func(t *testing.T) {
		t.Parallel()

		r, clk, _ := newTestRegistry()
		p := newTestPoller(r, clk)
		defer p.Stop()

		adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(3))
		adapter.QueryFn = func(_ context.Context, _ string, attempt int) (JobStatus, error) {
			if attempt < 3 {
				return JobStatus{}, fmt.Errorf("%w: connection reset", domain.ErrNetwork)
			}
			return JobStatus{State: JobSucceeded, ResultRef: "g"}, nil
		}
		adapter.FetchFn = func(context.Context, domain.Task, string) (domain.Result, error) {
			return domain.VideoGenerationResult{GenerationID: "g"}, nil
		}

		task := processingTask(t, r, videoRequest(), "job")
		p.Track(task, "job", adapter)
		waitQueries(t, adapter, 1)
		driveQueries(t, clk, adapter, videoInterval, 3)

		waitStatus(t, r, task.ID, domain.StatusCompleted)
	})

	t.Run("exhausts budget", func(t *testing.T) {
		t.Parallel()

		r, clk, _ := newTestRegistry()
		p := newTestPoller(r, clk)
		defer p.Stop()

		adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(2))
		adapter.QueryFn = func(context.Context, string, int) (JobStatus, error) {
			return JobStatus{}, errors.New("connection refused")
		}

		task := processingTask(t, r, videoRequest(), "job")
		p.Track(task, "job", adapter)
		waitQueries(t, adapter, 1)
		driveQueries(t, clk, adapter, videoInterval, 2)

		failed := waitStatus(t, r, task.ID, domain.StatusFailed)
		assert.Equal(t, domain.ErrorKindTimeout, failed.Error.Kind)
		assert.Contains(t, failed.Error.Message, "connection refused")
		assert.Equal(t, 2, adapter.Queries())
	})
}

func TestPoller_FetchRetriesWithoutRequery(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	adapter.QueryFn = func(context.Context, string, int) (JobStatus, error) {
		return JobStatus{State: JobSucceeded, ResultRef: "g1"}, nil
	}
	var fetches atomic.Int32
	adapter.FetchFn = func(_ context.Context, _ domain.Task, ref string) (domain.Result, error) {
		if fetches.Add(1) == 1 {
			return nil, errors.New("download interrupted")
		}
		return domain.VideoGenerationResult{GenerationID: ref}, nil
	}

	task := processingTask(t, r, videoRequest(), "job")
	p.Track(task, "job", adapter)

	require.Eventually(t, func() bool { return adapter.Fetches() == 1 }, waitFor, tick)

	// Still processing after the failed fetch
	mid, err := r.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, mid.Status)
	assert.Equal(t, "job", mid.ExternalJobRef)

	clk.Advance(videoInterval)
	waitStatus(t, r, task.ID, domain.StatusCompleted)
	assert.Equal(t, 1, adapter.Queries())
	assert.Equal(t, 2, adapter.Fetches())
}

func TestPoller_FetchFailuresExhaustBudget(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(3))
	adapter.QueryFn = func(context.Context, string, int) (JobStatus, error) {
		return JobStatus{State: JobSucceeded, ResultRef: "g1"}, nil
	}
	adapter.FetchFn = func(context.Context, domain.Task, string) (domain.Result, error) {
		return nil, errors.New("storage unavailable")
	}

	task := processingTask(t, r, videoRequest(), "job")
	p.Track(task, "job", adapter)

	for i := 1; i <= 3; i++ {
		want := i
		require.Eventually(t, func() bool { return adapter.Fetches() == want }, waitFor, tick)
		if i < 3 {
			clk.Advance(videoInterval)
		}
	}

	failed := waitStatus(t, r, task.ID, domain.StatusFailed)
	assert.Equal(t, domain.ErrorKindTimeout, failed.Error.Kind)
	assert.Contains(t, failed.Error.Message, string(domain.ErrorKindResultFetch))
	assert.Equal(t, 1, adapter.Queries())
}

func TestPoller_RemovalStopsPolling(t *testing.T) {
	t.Parallel()

	r, clk, rec := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	task := processingTask(t, r, videoRequest(), "job")
	p.Track(task, "job", adapter)
	waitQueries(t, adapter, 1)

	r.Remove(task.ID)
	eventsAfterRemove := rec.count()

	clk.Advance(videoInterval)
	require.Eventually(t, func() bool { return p.Tracking() == 0 }, waitFor, tick)

	assert.Equal(t, 1, adapter.Queries())
	assert.Equal(t, eventsAfterRemove, rec.count())
	assert.Equal(t, 0, r.Len())
}

func TestPoller_FinalizedElsewhereStopsPolling(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	task := processingTask(t, r, videoRequest(), "job")
	p.Track(task, "job", adapter)
	waitQueries(t, adapter, 1)

	_, err := r.Update(task.ID, domain.Failed(domain.NewTaskError(domain.ErrorKindExternalJobFailed, "canceled")))
	require.NoError(t, err)

	clk.Advance(videoInterval)
	require.Eventually(t, func() bool { return p.Tracking() == 0 }, waitFor, tick)
	assert.Equal(t, 1, adapter.Queries())
}

func TestPoller_ReleasesResultWhenTaskVanishes(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	var released []string
	p := NewPoller(r, clk, func(_ context.Context, keys []string) {
		released = append(released, keys...)
	}, testLogger())
	defer p.Stop()

	var task domain.Task
	adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	adapter.QueryFn = func(context.Context, string, int) (JobStatus, error) {
		return JobStatus{State: JobSucceeded, ResultRef: "g1"}, nil
	}
	adapter.FetchFn = func(context.Context, domain.Task, string) (domain.Result, error) {
		// The client deletes the task while the download is in flight
		r.Remove(task.ID)
		return domain.VideoGenerationResult{Video: domain.ContentRef{Key: "video/orphan.mp4"}}, nil
	}

	task = processingTask(t, r, videoRequest(), "job")
	p.Track(task, "job", adapter)

	require.Eventually(t, func() bool { return p.Tracking() == 0 }, waitFor, tick)
	assert.Equal(t, []string{"video/orphan.mp4"}, released)
}

func TestPoller_PerKindLoop(t *testing.T) {
	t.Parallel()

	const interval = 30 * time.Second

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)
	defer p.Stop()

	adapter := NewMockJobAdapter(domain.KindDocumentExtraction, PollPolicy{Interval: interval, Mode: PollPerKind})
	adapter.QueryFn = func(_ context.Context, jobID string, _ int) (JobStatus, error) {
		if jobID == "doc-1" {
			return JobStatus{State: JobSucceeded, ResultRef: "https://ocr.example/" + jobID + ".docx"}, nil
		}
		return JobStatus{State: JobPending}, nil
	}
	adapter.FetchFn = func(_ context.Context, task domain.Task, ref string) (domain.Result, error) {
		return domain.DocumentExtractionResult{ExtractionJobID: task.ExternalJobRef, OutputDocxURL: ref}, nil
	}

	first := processingTask(t, r, documentRequest(), "doc-1")
	second := processingTask(t, r, documentRequest(), "doc-2")
	p.Track(first, "doc-1", adapter)
	p.Track(second, "doc-2", adapter)

	assert.True(t, p.KindLoopRunning(domain.KindDocumentExtraction))
	assert.Equal(t, 1, clk.TickerCount())

	// No query before the first tick
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, adapter.Queries())

	clk.Advance(interval)
	waitQueries(t, adapter, 2)
	waitStatus(t, r, first.ID, domain.StatusCompleted)

	// The loop keeps running for the remaining job, with no attempt ceiling
	for i := 0; i < 5; i++ {
		want := adapter.Queries() + 1
		clk.Advance(interval)
		waitQueries(t, adapter, want)
	}
	assert.True(t, p.KindLoopRunning(domain.KindDocumentExtraction))

	r.Remove(second.ID)
	clk.Advance(interval)
	require.Eventually(t, func() bool { return !p.KindLoopRunning(domain.KindDocumentExtraction) }, waitFor, tick)
	require.Eventually(t, func() bool { return clk.TickerCount() == 0 }, waitFor, tick)

	// A new handoff restarts the loop
	before := adapter.Queries()
	third := processingTask(t, r, documentRequest(), "doc-3")
	p.Track(third, "doc-3", adapter)
	assert.True(t, p.KindLoopRunning(domain.KindDocumentExtraction))
	clk.Advance(interval)
	require.Eventually(t, func() bool {
		task, err := r.Get(third.ID)
		return err == nil && task.Status == domain.StatusProcessing && adapter.Queries() > before
	}, waitFor, tick)
}

func TestPoller_StopEndsAllLoops(t *testing.T) {
	t.Parallel()

	r, clk, _ := newTestRegistry()
	p := newTestPoller(r, clk)

	video := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(60))
	docs := NewMockJobAdapter(domain.KindDocumentExtraction, PollPolicy{Interval: time.Minute, Mode: PollPerKind})

	p.Track(processingTask(t, r, videoRequest(), "v"), "v", video)
	p.Track(processingTask(t, r, documentRequest(), "d"), "d", docs)
	waitQueries(t, video, 1)

	p.Stop()
	assert.Equal(t, 0, clk.TickerCount())

	// Tracking after stop is ignored
	p.Track(processingTask(t, r, videoRequest(), "late"), "late", video)
	assert.Equal(t, 0, clk.TickerCount())

	p.Stop()
}

// transitionRecorder collects tracker state changes per task
type transitionRecorder struct {
	mu    sync.Mutex
	byJob map[string][]TrackerState
}

func (r *transitionRecorder) observe(tr TrackerTransition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byJob == nil {
		r.byJob = make(map[string][]TrackerState)
	}
	r.byJob[tr.JobID] = append(r.byJob[tr.JobID], tr.To)
}

func (r *transitionRecorder) states(jobID string) []TrackerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TrackerState(nil), r.byJob[jobID]...)
}

func TestPoller_TrackerTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  func(attempt int) (JobStatus, error)
		remove bool
		want   []TrackerState
	}{
		{
			name: "succeeded",
			query: func(attempt int) (JobStatus, error) {
				if attempt < 2 {
					return JobStatus{State: JobRunning}, nil
				}
				return JobStatus{State: JobSucceeded, ResultRef: "g1"}, nil
			},
			want: []TrackerState{TrackerSubmitted, TrackerPolling, TrackerSucceeded},
		},
		{
			name: "failed",
			query: func(int) (JobStatus, error) {
				return JobStatus{State: JobFailed, Message: "rejected"}, nil
			},
			want: []TrackerState{TrackerSubmitted, TrackerPolling, TrackerFailed},
		},
		{
			name: "timed out",
			query: func(int) (JobStatus, error) {
				return JobStatus{State: JobRunning}, nil
			},
			want: []TrackerState{TrackerSubmitted, TrackerPolling, TrackerTimedOut},
		},
		{
			name: "removed",
			query: func(int) (JobStatus, error) {
				return JobStatus{State: JobRunning}, nil
			},
			remove: true,
			want:   []TrackerState{TrackerSubmitted, TrackerPolling, TrackerCanceled},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, clk, _ := newTestRegistry()
			rec := &transitionRecorder{}
			p := NewPoller(r, clk, nil, testLogger(), WithTransitionObserver(rec.observe))
			defer p.Stop()

			adapter := NewMockJobAdapter(domain.KindVideoGeneration, videoPolicy(3))
			adapter.QueryFn = func(_ context.Context, _ string, attempt int) (JobStatus, error) {
				return tc.query(attempt)
			}
			adapter.FetchFn = func(_ context.Context, task domain.Task, ref string) (domain.Result, error) {
				return domain.VideoGenerationResult{JobID: task.ExternalJobRef, GenerationID: ref}, nil
			}

			task := processingTask(t, r, videoRequest(), "job-"+tc.name)
			p.Track(task, "job-"+tc.name, adapter)
			waitQueries(t, adapter, 1)

			if tc.remove {
				r.Remove(task.ID)
			}
			require.Eventually(t, func() bool {
				clk.Advance(videoInterval)
				return p.Tracking() == 0
			}, waitFor, tick)

			want := tc.want
			require.Eventually(t, func() bool { return len(rec.states("job-"+tc.name)) == len(want) }, waitFor, tick)
			assert.Equal(t, want, rec.states("job-"+tc.name))
			assert.True(t, want[len(want)-1].Done())
		})
	}
}

func TestTrackerState_Done(t *testing.T) {
	t.Parallel()

	assert.False(t, TrackerSubmitted.Done())
	assert.False(t, TrackerPolling.Done())
	for _, s := range []TrackerState{TrackerSucceeded, TrackerFailed, TrackerTimedOut, TrackerCanceled} {
		assert.True(t, s.Done(), s)
	}
}
