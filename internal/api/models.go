package api

import (
	"time"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// SubmitResponse is returned with 202 Accepted when a task is registered.
type SubmitResponse struct {
	ID        string        `json:"id"`
	Kind      domain.Kind   `json:"kind"`
	Status    domain.Status `json:"status"`
	StatusURL string        `json:"status_url"`
}

// TaskResponse is the client view of a task snapshot.
type TaskResponse struct {
	ID          string        `json:"id"`
	Kind        domain.Kind   `json:"kind"`
	Status      domain.Status `json:"status"`
	StatusLabel string        `json:"status_label"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	Request domain.Request    `json:"request"`
	Result  domain.Result     `json:"result,omitempty"`
	Error   *domain.TaskError `json:"error,omitempty"`

	// ExternalJobRef is the ID of the provider job for polled kinds
	ExternalJobRef string `json:"external_job_ref,omitempty"`

	// ContentURL is set once a downloadable result exists
	ContentURL string `json:"content_url,omitempty"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// KindsResponse lists the task kinds the server can run.
type KindsResponse struct {
	Kinds []task.KindInfo `json:"kinds"`
}

func taskURL(id string) string {
	return "/api/tasks/" + id
}

func taskToResponse(t domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:             t.ID,
		Kind:           t.Kind,
		Status:         t.Status,
		StatusLabel:    task.StatusLabel(t.Status),
		CreatedAt:      t.CreatedAt,
		CompletedAt:    t.CompletedAt,
		Request:        t.Request,
		Result:         t.Result,
		Error:          t.Error,
		ExternalJobRef: t.ExternalJobRef,
	}
	if t.Status == domain.StatusCompleted && hasContent(t.Result) {
		resp.ContentURL = taskURL(t.ID) + "/content"
	}
	return resp
}

func tasksToResponse(tasks []domain.Task) TaskListResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return TaskListResponse{Tasks: out, Count: len(out)}
}

func hasContent(result domain.Result) bool {
	keyed, ok := result.(interface{ ContentKeys() []string })
	return ok && len(keyed.ContentKeys()) > 0
}
