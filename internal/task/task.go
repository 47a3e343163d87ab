package task

import (
	"context"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// JobState is the lifecycle state reported by an external job service.
type JobState string

// External job states
const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus is the outcome of one status query against an external job.
type JobStatus struct {
	State JobState

	// ResultRef identifies the payload to fetch once the job succeeded
	ResultRef string

	// Message is the external failure description when State is JobFailed
	Message string

	// Details carries kind-specific extras, such as secondary output URLs
	Details map[string]string
}

// PollMode selects how jobs of a kind are polled.
type PollMode int

const (
	// PollPerJob runs one bounded tracker loop per job.
	PollPerJob PollMode = iota

	// PollPerKind runs one loop per kind that lives while any job of the
	// kind is still tracked.
	PollPerKind
)

// PollPolicy configures polling for a kind. MaxAttempts of zero means no
// attempt ceiling.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Mode        PollMode
}

// Adapter is the contract every per-kind submission adapter satisfies.
type Adapter interface {
	// Kind returns the task kind the adapter serves
	Kind() domain.Kind

	// Asynchronous reports whether the adapter hands work to an external job
	Asynchronous() bool

	// CheckConfig returns an error wrapping domain.ErrConfiguration when the
	// endpoint, credentials, or deployment needed by the adapter are missing
	CheckConfig() error
}

// SyncAdapter fulfills a task with a single request/response call.
type SyncAdapter interface {
	Adapter

	// Invoke performs the call and returns the result payload
	Invoke(ctx context.Context, req domain.Request) (domain.Result, error)
}

// JobAdapter fulfills a task by submitting an external job and polling it.
type JobAdapter interface {
	Adapter

	// SubmitJob starts the external job and returns its identifier
	SubmitJob(ctx context.Context, req domain.Request) (string, error)

	// QueryJobStatus asks the external service for the job's state
	QueryJobStatus(ctx context.Context, jobID string) (JobStatus, error)

	// FetchResult retrieves the payload of a succeeded job
	FetchResult(ctx context.Context, task domain.Task, resultRef string) (domain.Result, error)

	// PollPolicy returns how jobs of this kind are polled
	PollPolicy() PollPolicy
}

// Submission is a unit of work for the worker pool: a freshly registered
// task together with the adapter that will fulfill it.
type Submission struct {
	TaskID  string
	Request domain.Request
	Adapter Adapter
}

// SubmissionQueueReader provides read-only access to queued submissions
// allowing workers to consume them without the ability to enqueue
type SubmissionQueueReader interface {
	// GetChannel returns a read-only channel for consuming submissions
	GetChannel() <-chan Submission
}

// JobReleaser is implemented by job adapters that keep per-job state between
// status queries. The service calls ReleaseJob once the job's tracker is done.
type JobReleaser interface {
	ReleaseJob(jobID string)
}

// ContentStore holds binary payloads (uploaded audio and documents,
// synthesized audio, generated video) referenced by task requests and results.
type ContentStore interface {
	// Put stores the payload under key
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the payload stored under key, or an error wrapping
	// domain.ErrContentNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the payload; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
