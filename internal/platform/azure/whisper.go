package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// WhisperClient transcribes audio with an Azure OpenAI Whisper deployment.
type WhisperClient struct {
	cfg Config
	t   transport
}

// NewWhisperClient creates the client.
func NewWhisperClient(cfg Config, opts ...Option) *WhisperClient {
	return &WhisperClient{cfg: cfg, t: newTransport(cfg.APIKey, opts)}
}

// CheckConfig reports missing settings.
func (c *WhisperClient) CheckConfig() error {
	return c.cfg.check("speech transcription")
}

// Transcribe uploads the audio and returns the recognized text. The language
// field is omitted when the request asks for automatic detection.
func (c *WhisperClient) Transcribe(ctx context.Context, req domain.SpeechTranscriptionRequest, audio []byte) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/audio/transcriptions?api-version=%s",
		c.cfg.baseURL(), url.PathEscape(c.cfg.Deployment), url.QueryEscape(c.cfg.APIVersion))

	fields := map[string]string{}
	if req.Language != "" && req.Language != domain.LanguageAuto {
		fields["language"] = req.Language
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "audio"
	}
	body, contentType, err := multipartBody("file", fileName, audio, fields)
	if err != nil {
		return "", err
	}

	data, err := c.t.do(ctx, http.MethodPost, endpoint, body, contentType)
	if err != nil {
		return "", fmt.Errorf("speech transcription: %w", err)
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("speech transcription: %w: decoding response: %v", domain.ErrExternalJobFailed, err)
	}
	return resp.Text, nil
}

// multipartBody builds a form with one file part and the given text fields.
func multipartBody(fileField, fileName string, data []byte, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func encodeJSON(v interface{}) (io.Reader, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(payload), nil
}

var _ task.TranscriptionClient = (*WhisperClient)(nil)
