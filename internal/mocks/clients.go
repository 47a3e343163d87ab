package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// MockSpeechClient implements task.SpeechClient for testing
type MockSpeechClient struct {
	CheckConfigFn func() error
	SynthesizeFn  func(ctx context.Context, req domain.SpeechSynthesisRequest) ([]byte, error)

	mu       sync.Mutex
	Requests []domain.SpeechSynthesisRequest
}

// CheckConfig implements task.SpeechClient
func (m *MockSpeechClient) CheckConfig() error {
	if m.CheckConfigFn != nil {
		return m.CheckConfigFn()
	}
	return nil
}

// Synthesize implements task.SpeechClient
func (m *MockSpeechClient) Synthesize(ctx context.Context, req domain.SpeechSynthesisRequest) ([]byte, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, req)
	}
	return []byte("audio"), nil
}

// MockTranscriptionClient implements task.TranscriptionClient for testing
type MockTranscriptionClient struct {
	CheckConfigFn func() error
	TranscribeFn  func(ctx context.Context, req domain.SpeechTranscriptionRequest, audio []byte) (string, error)

	mu     sync.Mutex
	Audios [][]byte
}

// CheckConfig implements task.TranscriptionClient
func (m *MockTranscriptionClient) CheckConfig() error {
	if m.CheckConfigFn != nil {
		return m.CheckConfigFn()
	}
	return nil
}

// Transcribe implements task.TranscriptionClient
func (m *MockTranscriptionClient) Transcribe(
	ctx context.Context,
	req domain.SpeechTranscriptionRequest,
	audio []byte,
) (string, error) {
	m.mu.Lock()
	m.Audios = append(m.Audios, audio)
	m.mu.Unlock()

	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, req, audio)
	}
	return "", nil
}

// MockVideoClient implements task.VideoClient for testing
type MockVideoClient struct {
	CheckConfigFn   func() error
	CreateJobFn     func(ctx context.Context, req domain.VideoGenerationRequest) (string, error)
	GetJobFn        func(ctx context.Context, jobID string) (task.JobStatus, error)
	DownloadVideoFn func(ctx context.Context, generationID string) ([]byte, error)

	mu         sync.Mutex
	Created    []domain.VideoGenerationRequest
	Queried    []string
	Downloaded []string
}

// CheckConfig implements task.VideoClient
func (m *MockVideoClient) CheckConfig() error {
	if m.CheckConfigFn != nil {
		return m.CheckConfigFn()
	}
	return nil
}

// CreateJob implements task.VideoClient
func (m *MockVideoClient) CreateJob(ctx context.Context, req domain.VideoGenerationRequest) (string, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	m.mu.Unlock()

	if m.CreateJobFn != nil {
		return m.CreateJobFn(ctx, req)
	}
	return "job-1", nil
}

// GetJob implements task.VideoClient
func (m *MockVideoClient) GetJob(ctx context.Context, jobID string) (task.JobStatus, error) {
	m.mu.Lock()
	m.Queried = append(m.Queried, jobID)
	m.mu.Unlock()

	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, jobID)
	}
	return task.JobStatus{State: task.JobPending}, nil
}

// DownloadVideo implements task.VideoClient
func (m *MockVideoClient) DownloadVideo(ctx context.Context, generationID string) ([]byte, error) {
	m.mu.Lock()
	m.Downloaded = append(m.Downloaded, generationID)
	m.mu.Unlock()

	if m.DownloadVideoFn != nil {
		return m.DownloadVideoFn(ctx, generationID)
	}
	return []byte("video"), nil
}

// MockDocumentClient implements task.DocumentClient for testing
type MockDocumentClient struct {
	CheckConfigFn      func() error
	SubmitExtractionFn func(ctx context.Context, fileName, extractionType string, pdf []byte) (string, error)
	GetExtractionFn    func(ctx context.Context, jobID string) (task.JobStatus, error)
	DownloadFn         func(ctx context.Context, url string) ([]byte, error)

	mu         sync.Mutex
	Submitted  []string
	Downloaded []string
}

// CheckConfig implements task.DocumentClient
func (m *MockDocumentClient) CheckConfig() error {
	if m.CheckConfigFn != nil {
		return m.CheckConfigFn()
	}
	return nil
}

// SubmitExtraction implements task.DocumentClient
func (m *MockDocumentClient) SubmitExtraction(
	ctx context.Context,
	fileName, extractionType string,
	pdf []byte,
) (string, error) {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, fileName)
	m.mu.Unlock()

	if m.SubmitExtractionFn != nil {
		return m.SubmitExtractionFn(ctx, fileName, extractionType, pdf)
	}
	return "1", nil
}

// GetExtraction implements task.DocumentClient
func (m *MockDocumentClient) GetExtraction(ctx context.Context, jobID string) (task.JobStatus, error) {
	if m.GetExtractionFn != nil {
		return m.GetExtractionFn(ctx, jobID)
	}
	return task.JobStatus{State: task.JobPending}, nil
}

// Download implements task.DocumentClient
func (m *MockDocumentClient) Download(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.Downloaded = append(m.Downloaded, url)
	m.mu.Unlock()

	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, url)
	}
	return []byte("docx"), nil
}

// Ensure the mocks satisfy the client interfaces
var (
	_ task.SpeechClient        = (*MockSpeechClient)(nil)
	_ task.TranscriptionClient = (*MockTranscriptionClient)(nil)
	_ task.VideoClient         = (*MockVideoClient)(nil)
	_ task.DocumentClient      = (*MockDocumentClient)(nil)
)
