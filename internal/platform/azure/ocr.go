package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// maxJobPages bounds how many pages of the job listing are walked when
// looking for a job.
const maxJobPages = 20

// OCRClient drives PDF extraction jobs on the OCR job service. The service
// needs no credentials.
type OCRClient struct {
	endpoint string
	t        transport
}

// NewOCRClient creates a client for the service at endpoint.
func NewOCRClient(endpoint string, opts ...Option) *OCRClient {
	return &OCRClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		t:        newTransport("", opts),
	}
}

// CheckConfig reports a missing endpoint.
func (c *OCRClient) CheckConfig() error {
	if c.endpoint == "" {
		return fmt.Errorf("%w: document extraction is missing endpoint", domain.ErrConfiguration)
	}
	return nil
}

type ocrJob struct {
	ID               int64  `json:"id"`
	Status           string `json:"status"`
	OutputDocx       string `json:"output_docx"`
	OutputJSON       string `json:"output_json"`
	ErrorDescription string `json:"error_description"`
}

type ocrJobPage struct {
	Next    *string  `json:"next"`
	Results []ocrJob `json:"results"`
}

func (j ocrJob) status() task.JobStatus {
	switch j.Status {
	case "c":
		return task.JobStatus{
			State:     task.JobSucceeded,
			ResultRef: j.OutputDocx,
			Details:   map[string]string{task.DetailOutputJSON: j.OutputJSON},
		}
	case "f":
		return task.JobStatus{State: task.JobFailed, Message: j.ErrorDescription}
	default:
		return task.JobStatus{State: task.JobPending}
	}
}

// SubmitExtraction uploads the PDF and returns the job ID.
func (c *OCRClient) SubmitExtraction(ctx context.Context, fileName, extractionType string, pdf []byte) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}

	body, contentType, err := multipartBody("pdf_file", fileName, pdf, map[string]string{"ocr_type": extractionType})
	if err != nil {
		return "", err
	}

	data, err := c.t.do(ctx, http.MethodPost, c.endpoint+"/jobs/", body, contentType)
	if err != nil {
		return "", fmt.Errorf("submit extraction: %w", err)
	}

	var job ocrJob
	if err := json.Unmarshal(data, &job); err != nil {
		return "", fmt.Errorf("submit extraction: %w: decoding response: %v", domain.ErrExternalJobFailed, err)
	}
	if job.ID == 0 {
		return "", fmt.Errorf("submit extraction: %w: response has no job id", domain.ErrExternalJobFailed)
	}
	return strconv.FormatInt(job.ID, 10), nil
}

// GetExtraction finds the job in the service's job listing. A job missing
// from the listing is reported as failed.
func (c *OCRClient) GetExtraction(ctx context.Context, jobID string) (task.JobStatus, error) {
	id, err := strconv.ParseInt(jobID, 10, 64)
	if err != nil {
		return task.JobStatus{}, fmt.Errorf("%w: malformed extraction job id %q", domain.ErrExternalJobFailed, jobID)
	}

	next := c.endpoint + "/jobs/"
	for page := 0; next != "" && page < maxJobPages; page++ {
		var jobs ocrJobPage
		if err := c.t.doJSON(ctx, http.MethodGet, next, nil, &jobs); err != nil {
			return task.JobStatus{}, fmt.Errorf("list extraction jobs: %w", err)
		}
		for _, j := range jobs.Results {
			if j.ID == id {
				return j.status(), nil
			}
		}

		next = ""
		if jobs.Next != nil {
			next = *jobs.Next
		}
	}

	return task.JobStatus{State: task.JobFailed, Message: fmt.Sprintf("extraction job %s no longer listed", jobID)}, nil
}

// Download fetches an output file by URL.
func (c *OCRClient) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := c.t.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, fmt.Errorf("download extraction output: %w", err)
	}
	return data, nil
}

var _ task.DocumentClient = (*OCRClient)(nil)
