package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/mediaflow-api/internal/api/shared"
	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// MaxAudioUploadSize is the largest audio file accepted for transcription.
const MaxAudioUploadSize = 25 * 1024 * 1024

const (
	// multipartMemory is the part of a multipart form held in memory
	multipartMemory = 32 << 20

	// multipartOverhead covers form fields and boundaries around the file
	multipartOverhead = 1 << 20

	uploadPrefix = "uploads"
)

// TaskService is the task orchestration surface used by the handlers.
type TaskService interface {
	Submit(ctx context.Context, req domain.Request) (string, error)
	GetTask(id string) (domain.Task, error)
	List() []domain.Task
	ListActive() []domain.Task
	ListByKind(kind domain.Kind) []domain.Task
	Remove(ctx context.Context, id string)
	Content(ctx context.Context, id string) ([]byte, domain.ContentRef, error)
	Kinds() []task.KindInfo
}

// UploadStore receives uploaded files before their task is submitted.
type UploadStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	service TaskService
	uploads UploadStore
	logger  *slog.Logger

	// extractionType is used when a document upload names none
	extractionType string
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(service TaskService, uploads UploadStore, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		service: service,
		uploads: uploads,
		logger:  logger.With("component", "task_handler"),
	}
}

// WithExtractionType sets the extraction type used for document uploads
// that do not name one.
func (h *TaskHandler) WithExtractionType(extractionType string) *TaskHandler {
	h.extractionType = extractionType
	return h
}

// RegisterRoutes mounts the task endpoints on r.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kinds", h.ListKinds)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/speech-synthesis", h.SubmitSpeechSynthesis)
		r.Post("/speech-transcription", h.SubmitSpeechTranscription)
		r.Post("/video-generation", h.SubmitVideoGeneration)
		r.Post("/document-extraction", h.SubmitDocumentExtraction)

		r.Get("/{id}", h.GetTask)
		r.Get("/{id}/content", h.GetTaskContent)
		r.Delete("/{id}", h.DeleteTask)
	})
}

// SubmitSpeechSynthesis handles POST /api/tasks/speech-synthesis requests
func (h *TaskHandler) SubmitSpeechSynthesis(w http.ResponseWriter, r *http.Request) {
	var req domain.SpeechSynthesisRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	h.submit(w, r, req.WithDefaults())
}

// SubmitVideoGeneration handles POST /api/tasks/video-generation requests
func (h *TaskHandler) SubmitVideoGeneration(w http.ResponseWriter, r *http.Request) {
	var req domain.VideoGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	h.submit(w, r, req.WithDefaults())
}

// SubmitSpeechTranscription handles POST /api/tasks/speech-transcription
// multipart uploads with a "file" part and optional "language" and
// "recognition_mode" fields.
func (h *TaskHandler) SubmitSpeechTranscription(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(w, r, MaxAudioUploadSize)
	if err != nil {
		h.respondUploadError(w, r, err)
		return
	}

	ref, err := h.store(r.Context(), upload, "")
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store uploaded audio")
		return
	}

	req := domain.SpeechTranscriptionRequest{
		FileName:        upload.fileName,
		Language:        strings.TrimSpace(r.FormValue("language")),
		RecognitionMode: domain.RecognitionMode(strings.TrimSpace(r.FormValue("recognition_mode"))),
		Audio:           ref,
	}
	h.submit(w, r, req.WithDefaults())
}

// SubmitDocumentExtraction handles POST /api/tasks/document-extraction
// multipart uploads. Only PDF files are accepted.
func (h *TaskHandler) SubmitDocumentExtraction(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(w, r, domain.MaxDocumentSize)
	if err != nil {
		h.respondUploadError(w, r, err)
		return
	}

	if !isPDF(upload) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Only PDF documents are supported")
		return
	}

	ref, err := h.store(r.Context(), upload, "application/pdf")
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store uploaded document")
		return
	}

	extractionType := strings.TrimSpace(r.FormValue("extraction_type"))
	if extractionType == "" {
		extractionType = h.extractionType
	}
	req := domain.DocumentExtractionRequest{
		FileName:       upload.fileName,
		FileSize:       int64(len(upload.data)),
		ExtractionType: extractionType,
		Document:       ref,
	}
	h.submit(w, r, req.WithDefaults())
}

// ListTasks handles GET /api/tasks. The optional "kind" query parameter
// filters by kind and "active=true" keeps only unfinished tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var tasks []domain.Task
	if raw := query.Get("kind"); raw != "" {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		tasks = h.service.ListByKind(kind)
	} else {
		tasks = h.service.List()
	}

	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid active: must be true or false")
			return
		}
		if active {
			tasks = activeOnly(tasks)
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.service.GetTask(id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// GetTaskContent handles GET /api/tasks/{id}/content by writing the stored
// result payload with its content type.
func (h *TaskHandler) GetTaskContent(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	data, ref, err := h.service.Content(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task content")
		return
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+path.Ext(ref.Key)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write task content",
			"task_id", id,
			"trace_id", shared.GetTraceID(r.Context()),
			"error", err)
	}
}

// DeleteTask handles DELETE /api/tasks/{id}. Removing an unknown task
// still succeeds.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.service.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// ListKinds handles GET /api/kinds requests
func (h *TaskHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, KindsResponse{Kinds: h.service.Kinds()})
}

func (h *TaskHandler) submit(w http.ResponseWriter, r *http.Request, req domain.Request) {
	id, err := h.service.Submit(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit task")
		return
	}

	h.logger.DebugContext(r.Context(), "task accepted",
		"task_id", id,
		"task_kind", req.Kind(),
		"trace_id", shared.GetTraceID(r.Context()))

	w.Header().Set("Location", taskURL(id))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{
		ID:        id,
		Kind:      req.Kind(),
		Status:    domain.StatusPending,
		StatusURL: taskURL(id),
	})
}

// upload is a file read from a multipart request.
type upload struct {
	fileName    string
	contentType string
	data        []byte
}

var errMissingFile = errors.New("missing file")

// readUpload parses the multipart body and reads the "file" part, rejecting
// files over limit bytes.
func (h *TaskHandler) readUpload(w http.ResponseWriter, r *http.Request, limit int64) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return upload{}, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload{}, errMissingFile
		}
		return upload{}, err
	}
	defer func(f multipart.File) {
		_ = f.Close()
	}(file)

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return upload{}, err
	}
	if int64(len(data)) > limit {
		return upload{}, fmt.Errorf("%w: %d bytes allowed", errUploadTooLarge, limit)
	}
	if len(data) == 0 {
		return upload{}, fmt.Errorf("%w: upload request: uploaded file is empty", domain.ErrValidation)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return upload{
		fileName:    path.Base(header.Filename),
		contentType: contentType,
		data:        data,
	}, nil
}

func (h *TaskHandler) respondUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingFile):
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file upload")
	case errors.Is(err, errUploadTooLarge), errors.As(err, &maxBytes), errors.Is(err, domain.ErrValidation):
		HandleAPIError(w, r, err, "")
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid multipart form", err)
	}
}

// store saves the upload under a fresh key. contentType overrides the
// detected type when set.
func (h *TaskHandler) store(ctx context.Context, u upload, contentType string) (domain.ContentRef, error) {
	if contentType == "" {
		contentType = u.contentType
	}
	key := fmt.Sprintf("%s/%s%s", uploadPrefix, uuid.New().String(), strings.ToLower(path.Ext(u.fileName)))
	if err := h.uploads.Put(ctx, key, u.data, contentType); err != nil {
		return domain.ContentRef{}, fmt.Errorf("storing upload: %w", err)
	}
	return domain.ContentRef{Key: key, ContentType: contentType, Size: int64(len(u.data))}, nil
}

func isPDF(u upload) bool {
	if bytes.HasPrefix(u.data, []byte("%PDF-")) {
		return true
	}
	return strings.EqualFold(path.Ext(u.fileName), ".pdf") &&
		strings.HasPrefix(u.contentType, "application/pdf")
}

func activeOnly(tasks []domain.Task) []domain.Task {
	active := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			active = append(active, t)
		}
	}
	return active
}
