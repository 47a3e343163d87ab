package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// ContentTypeDocx is the MIME type of extracted Word documents.
const ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// transcriptionConfidence is reported for every transcript; the backends
// return no per-word scores.
const transcriptionConfidence = 0.95

// SpeechClient renders text to audio.
type SpeechClient interface {
	CheckConfig() error
	Synthesize(ctx context.Context, req domain.SpeechSynthesisRequest) ([]byte, error)
}

// TranscriptionClient turns recorded audio into text.
type TranscriptionClient interface {
	CheckConfig() error
	Transcribe(ctx context.Context, req domain.SpeechTranscriptionRequest, audio []byte) (string, error)
}

// VideoClient talks to a video generation job service. GetJob reports the
// first generation ID as the result reference.
type VideoClient interface {
	CheckConfig() error
	CreateJob(ctx context.Context, req domain.VideoGenerationRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (JobStatus, error)
	DownloadVideo(ctx context.Context, generationID string) ([]byte, error)
}

// DocumentClient talks to a document extraction job service. GetExtraction
// reports the Word output URL as the result reference and the JSON output URL
// under the DetailOutputJSON key.
type DocumentClient interface {
	CheckConfig() error
	SubmitExtraction(ctx context.Context, fileName, extractionType string, pdf []byte) (string, error)
	GetExtraction(ctx context.Context, jobID string) (JobStatus, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// DetailOutputJSON is the JobStatus detail key holding the JSON output URL.
const DetailOutputJSON = "output_json"

func contentKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, uuid.New().String(), ext)
}

func unexpectedRequest(want domain.Kind, got domain.Request) error {
	return fmt.Errorf("%w: expected %s request, got %T", domain.ErrValidation, want, got)
}

func storeResult(ctx context.Context, store ContentStore, key, contentType string, data []byte) (domain.ContentRef, error) {
	if err := store.Put(ctx, key, data, contentType); err != nil {
		return domain.ContentRef{}, fmt.Errorf("%w: storing result: %v", domain.ErrResultFetch, err)
	}
	return domain.ContentRef{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// SpeechSynthesisAdapter fulfills speech synthesis tasks in one call.
type SpeechSynthesisAdapter struct {
	client  SpeechClient
	content ContentStore
}

// NewSpeechSynthesisAdapter creates the adapter.
func NewSpeechSynthesisAdapter(client SpeechClient, content ContentStore) *SpeechSynthesisAdapter {
	return &SpeechSynthesisAdapter{client: client, content: content}
}

func (a *SpeechSynthesisAdapter) Kind() domain.Kind  { return domain.KindSpeechSynthesis }
func (a *SpeechSynthesisAdapter) Asynchronous() bool { return false }
func (a *SpeechSynthesisAdapter) CheckConfig() error { return a.client.CheckConfig() }

// Invoke synthesizes the audio and stores it.
func (a *SpeechSynthesisAdapter) Invoke(ctx context.Context, req domain.Request) (domain.Result, error) {
	r, ok := req.(domain.SpeechSynthesisRequest)
	if !ok {
		return nil, unexpectedRequest(a.Kind(), req)
	}

	audio, err := a.client.Synthesize(ctx, r)
	if err != nil {
		return nil, err
	}

	ref, err := storeResult(ctx, a.content, contentKey("speech", string(r.Format)), r.Format.ContentType(), audio)
	if err != nil {
		return nil, err
	}
	return domain.SpeechSynthesisResult{Audio: ref, Format: r.Format, Voice: r.Voice}, nil
}

// SpeechTranscriptionAdapter fulfills transcription tasks in one call.
type SpeechTranscriptionAdapter struct {
	client  TranscriptionClient
	content ContentStore
}

// NewSpeechTranscriptionAdapter creates the adapter.
func NewSpeechTranscriptionAdapter(client TranscriptionClient, content ContentStore) *SpeechTranscriptionAdapter {
	return &SpeechTranscriptionAdapter{client: client, content: content}
}

func (a *SpeechTranscriptionAdapter) Kind() domain.Kind  { return domain.KindSpeechTranscription }
func (a *SpeechTranscriptionAdapter) Asynchronous() bool { return false }
func (a *SpeechTranscriptionAdapter) CheckConfig() error { return a.client.CheckConfig() }

// Invoke loads the uploaded audio and transcribes it.
func (a *SpeechTranscriptionAdapter) Invoke(ctx context.Context, req domain.Request) (domain.Result, error) {
	r, ok := req.(domain.SpeechTranscriptionRequest)
	if !ok {
		return nil, unexpectedRequest(a.Kind(), req)
	}

	audio, err := a.content.Get(ctx, r.Audio.Key)
	if err != nil {
		return nil, fmt.Errorf("loading uploaded audio: %w", err)
	}

	text, err := a.client.Transcribe(ctx, r, audio)
	if err != nil {
		return nil, err
	}

	return domain.SpeechTranscriptionResult{
		Transcript: text,
		Confidence: transcriptionConfidence,
		Words:      []domain.Word{},
	}, nil
}

// VideoGenerationAdapter fulfills video tasks through a bounded polled job.
type VideoGenerationAdapter struct {
	client  VideoClient
	content ContentStore
	policy  PollPolicy
}

// DefaultVideoPollPolicy polls every 5 seconds for at most 60 attempts.
func DefaultVideoPollPolicy() PollPolicy {
	return PollPolicy{Interval: 5 * time.Second, MaxAttempts: 60, Mode: PollPerJob}
}

// NewVideoGenerationAdapter creates the adapter.
func NewVideoGenerationAdapter(client VideoClient, content ContentStore, policy PollPolicy) *VideoGenerationAdapter {
	policy.Mode = PollPerJob
	return &VideoGenerationAdapter{client: client, content: content, policy: policy}
}

func (a *VideoGenerationAdapter) Kind() domain.Kind      { return domain.KindVideoGeneration }
func (a *VideoGenerationAdapter) Asynchronous() bool     { return true }
func (a *VideoGenerationAdapter) CheckConfig() error     { return a.client.CheckConfig() }
func (a *VideoGenerationAdapter) PollPolicy() PollPolicy { return a.policy }

// SubmitJob creates the generation job.
func (a *VideoGenerationAdapter) SubmitJob(ctx context.Context, req domain.Request) (string, error) {
	r, ok := req.(domain.VideoGenerationRequest)
	if !ok {
		return "", unexpectedRequest(a.Kind(), req)
	}
	return a.client.CreateJob(ctx, r)
}

// QueryJobStatus asks for the job's state.
func (a *VideoGenerationAdapter) QueryJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	return a.client.GetJob(ctx, jobID)
}

// FetchResult downloads the generated video and stores it.
func (a *VideoGenerationAdapter) FetchResult(ctx context.Context, task domain.Task, generationID string) (domain.Result, error) {
	data, err := a.client.DownloadVideo(ctx, generationID)
	if err != nil {
		return nil, err
	}

	ref, err := storeResult(ctx, a.content, contentKey("video", "mp4"), "video/mp4", data)
	if err != nil {
		return nil, err
	}

	var seconds int
	if r, ok := task.Request.(domain.VideoGenerationRequest); ok {
		seconds = r.DurationSeconds
	}
	return domain.VideoGenerationResult{
		JobID:           task.ExternalJobRef,
		GenerationID:    generationID,
		DurationSeconds: seconds,
		Video:           ref,
	}, nil
}

// DocumentExtractionAdapter fulfills document tasks through a job polled by
// the shared per-kind loop.
type DocumentExtractionAdapter struct {
	client  DocumentClient
	content ContentStore
	policy  PollPolicy

	// jsonURLs remembers secondary outputs between status query and fetch
	jsonURLs sync.Map
}

// DefaultDocumentPollPolicy polls every 30 seconds with no attempt ceiling.
func DefaultDocumentPollPolicy() PollPolicy {
	return PollPolicy{Interval: 30 * time.Second, Mode: PollPerKind}
}

// NewDocumentExtractionAdapter creates the adapter.
func NewDocumentExtractionAdapter(client DocumentClient, content ContentStore, policy PollPolicy) *DocumentExtractionAdapter {
	policy.Mode = PollPerKind
	policy.MaxAttempts = 0
	return &DocumentExtractionAdapter{client: client, content: content, policy: policy}
}

func (a *DocumentExtractionAdapter) Kind() domain.Kind      { return domain.KindDocumentExtraction }
func (a *DocumentExtractionAdapter) Asynchronous() bool     { return true }
func (a *DocumentExtractionAdapter) CheckConfig() error     { return a.client.CheckConfig() }
func (a *DocumentExtractionAdapter) PollPolicy() PollPolicy { return a.policy }

// SubmitJob uploads the stored document for extraction.
func (a *DocumentExtractionAdapter) SubmitJob(ctx context.Context, req domain.Request) (string, error) {
	r, ok := req.(domain.DocumentExtractionRequest)
	if !ok {
		return "", unexpectedRequest(a.Kind(), req)
	}

	pdf, err := a.content.Get(ctx, r.Document.Key)
	if err != nil {
		return "", fmt.Errorf("loading uploaded document: %w", err)
	}
	return a.client.SubmitExtraction(ctx, r.FileName, r.ExtractionType, pdf)
}

// QueryJobStatus asks for the extraction's state.
func (a *DocumentExtractionAdapter) QueryJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	status, err := a.client.GetExtraction(ctx, jobID)
	if err != nil {
		return status, err
	}
	if u := status.Details[DetailOutputJSON]; u != "" {
		a.jsonURLs.Store(jobID, u)
	}
	return status, nil
}

// FetchResult downloads the Word output and stores it.
func (a *DocumentExtractionAdapter) FetchResult(ctx context.Context, task domain.Task, docxURL string) (domain.Result, error) {
	data, err := a.client.Download(ctx, docxURL)
	if err != nil {
		return nil, err
	}

	ref, err := storeResult(ctx, a.content, contentKey("documents", "docx"), ContentTypeDocx, data)
	if err != nil {
		return nil, err
	}

	var jsonURL string
	if v, ok := a.jsonURLs.LoadAndDelete(task.ExternalJobRef); ok {
		jsonURL = v.(string)
	}
	return domain.DocumentExtractionResult{
		ExtractionJobID: task.ExternalJobRef,
		OutputDocxURL:   docxURL,
		OutputJSONURL:   jsonURL,
		Document:        ref,
	}, nil
}

// ReleaseJob forgets the secondary output remembered for jobID.
func (a *DocumentExtractionAdapter) ReleaseJob(jobID string) {
	a.jsonURLs.Delete(jobID)
}

// Ensure the adapters satisfy their capability interfaces
var (
	_ SyncAdapter = (*SpeechSynthesisAdapter)(nil)
	_ SyncAdapter = (*SpeechTranscriptionAdapter)(nil)
	_ JobAdapter  = (*VideoGenerationAdapter)(nil)
	_ JobAdapter  = (*DocumentExtractionAdapter)(nil)
	_ JobReleaser = (*DocumentExtractionAdapter)(nil)
)
