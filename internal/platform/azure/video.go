package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// VideoClient drives Azure OpenAI video generation jobs.
type VideoClient struct {
	cfg Config
	t   transport
}

// NewVideoClient creates the client.
func NewVideoClient(cfg Config, opts ...Option) *VideoClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "preview"
	}
	return &VideoClient{cfg: cfg, t: newTransport(cfg.APIKey, opts)}
}

// CheckConfig reports missing settings.
func (c *VideoClient) CheckConfig() error {
	return c.cfg.check("video generation")
}

// The service expects the numeric fields as strings.
type videoJobBody struct {
	Prompt    string `json:"prompt"`
	NVariants int    `json:"n_variants"`
	NSeconds  string `json:"n_seconds"`
	Height    string `json:"height"`
	Width     string `json:"width"`
	Model     string `json:"model"`
}

type videoJob struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Generations []struct {
		ID string `json:"id"`
	} `json:"generations"`
	Error json.RawMessage `json:"error"`
}

func (j videoJob) errorMessage() string {
	if len(j.Error) == 0 || string(j.Error) == "null" {
		return ""
	}
	var plain string
	if json.Unmarshal(j.Error, &plain) == nil {
		return plain
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(j.Error, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(j.Error)
}

func (c *VideoClient) jobsURL() string {
	return fmt.Sprintf("%s/openai/v1/video/generations/jobs", c.cfg.baseURL())
}

func (c *VideoClient) query() string {
	return "?api-version=" + url.QueryEscape(c.cfg.APIVersion)
}

// CreateJob submits a generation job and returns its ID.
func (c *VideoClient) CreateJob(ctx context.Context, req domain.VideoGenerationRequest) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}

	variants := req.Variants
	if variants <= 0 {
		variants = 1
	}
	body := videoJobBody{
		Prompt:    req.Prompt,
		NVariants: variants,
		NSeconds:  strconv.Itoa(req.DurationSeconds),
		Height:    strconv.Itoa(req.Height),
		Width:     strconv.Itoa(req.Width),
		Model:     c.cfg.Deployment,
	}

	var job videoJob
	if err := c.t.doJSON(ctx, http.MethodPost, c.jobsURL()+c.query(), body, &job); err != nil {
		return "", fmt.Errorf("create video job: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("create video job: %w: response has no job id", domain.ErrExternalJobFailed)
	}
	return job.ID, nil
}

// GetJob reports the job state. A succeeded job carries its first generation
// ID as the result reference.
func (c *VideoClient) GetJob(ctx context.Context, jobID string) (task.JobStatus, error) {
	var job videoJob
	endpoint := c.jobsURL() + "/" + url.PathEscape(jobID) + c.query()
	if err := c.t.doJSON(ctx, http.MethodGet, endpoint, nil, &job); err != nil {
		return task.JobStatus{}, fmt.Errorf("get video job: %w", err)
	}

	switch job.Status {
	case "succeeded":
		status := task.JobStatus{State: task.JobSucceeded}
		if len(job.Generations) > 0 {
			status.ResultRef = job.Generations[0].ID
		}
		return status, nil
	case "failed", "cancelled":
		return task.JobStatus{State: task.JobFailed, Message: job.errorMessage()}, nil
	case "running", "processing", "preprocessing":
		return task.JobStatus{State: task.JobRunning}, nil
	default:
		return task.JobStatus{State: task.JobPending}, nil
	}
}

// DownloadVideo returns the MP4 bytes of a generation.
func (c *VideoClient) DownloadVideo(ctx context.Context, generationID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/openai/v1/video/generations/%s/content/video%s",
		c.cfg.baseURL(), url.PathEscape(generationID), c.query())

	data, err := c.t.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	return data, nil
}

var _ task.VideoClient = (*VideoClient)(nil)
