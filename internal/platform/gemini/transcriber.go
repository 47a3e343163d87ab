package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const defaultPrompt = `Transcribe the attached audio recording verbatim.
{{if .Language}}The speech is in the language with code "{{.Language}}".{{else}}Detect the spoken language yourself.{{end}}
{{- if eq .Mode "conversation"}}
Several people may be speaking; start a new line whenever the speaker changes.
{{- else if eq .Mode "dictation"}}
The speaker is dictating; turn spoken punctuation such as "comma" or "new paragraph" into the punctuation itself.
{{- end}}
Return only the transcript text without commentary.`

// Config holds the Gemini transcription settings.
type Config struct {
	APIKey string
	Model  string

	// PromptTemplatePath optionally replaces the built-in prompt
	PromptTemplatePath string

	MaxRetries int
	RetryDelay time.Duration
}

// contentGenerator is the part of the genai client used by Transcriber.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type promptData struct {
	Language string
	Mode     domain.RecognitionMode
}

// Transcriber implements task.TranscriptionClient using the Gemini API.
type Transcriber struct {
	logger *slog.Logger
	config Config
	prompt *template.Template
	models contentGenerator
}

// NewTranscriber creates a transcriber. Without an API key it is created
// unconfigured and CheckConfig reports the missing key.
func NewTranscriber(ctx context.Context, logger *slog.Logger, cfg Config) (*Transcriber, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	prompt, err := loadPrompt(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	t := newTranscriber(logger, cfg, prompt, nil)
	if cfg.APIKey == "" {
		return t, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", domain.ErrConfiguration, err)
	}
	t.models = client.Models
	return t, nil
}

func newTranscriber(logger *slog.Logger, cfg Config, prompt *template.Template, models contentGenerator) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Transcriber{
		logger: logger.With("component", "gemini_transcriber"),
		config: cfg,
		prompt: prompt,
		models: models,
	}
}

func loadPrompt(path string) (*template.Template, error) {
	text := defaultPrompt
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				domain.ErrConfiguration, path, err)
		}
		text = string(content)
	}

	tmpl, err := template.New("transcription").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", domain.ErrConfiguration, err)
	}
	return tmpl, nil
}

// CheckConfig reports a missing API key.
func (t *Transcriber) CheckConfig() error {
	if t.config.APIKey == "" || t.models == nil {
		return fmt.Errorf("%w: gemini transcription is missing api key", domain.ErrConfiguration)
	}
	return nil
}

// Transcribe sends the audio with a transcription prompt and returns the
// text of the first candidate.
func (t *Transcriber) Transcribe(ctx context.Context, req domain.SpeechTranscriptionRequest, audio []byte) (string, error) {
	if err := t.CheckConfig(); err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, ErrEmptyAudio)
	}

	prompt, err := t.createPrompt(req)
	if err != nil {
		return "", err
	}

	mimeType := req.Audio.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "audio/mpeg"
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
		},
	}}

	return t.generateWithRetry(ctx, contents)
}

func (t *Transcriber) createPrompt(req domain.SpeechTranscriptionRequest) (string, error) {
	data := promptData{Mode: req.RecognitionMode}
	if req.Language != domain.LanguageAuto {
		data.Language = req.Language
	}

	var buf bytes.Buffer
	if err := t.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// generateWithRetry calls the API up to MaxRetries+1 times. Blocked and
// malformed responses are returned without retrying.
func (t *Transcriber) generateWithRetry(ctx context.Context, contents []*genai.Content) (string, error) {
	maxRetries := t.config.MaxRetries
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		t.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"model", t.config.Model)

		resp, err := t.models.GenerateContent(ctx, t.config.Model, contents, nil)
		if err == nil {
			text, perr := responseText(resp)
			if perr != nil {
				t.logger.WarnContext(ctx, "permanent Gemini error, not retrying", "error", perr)
				return "", fmt.Errorf("%w: %v", domain.ErrExternalJobFailed, perr)
			}
			return text, nil
		}

		lastErr = err
		t.logger.WarnContext(ctx, "Gemini API call failed", "attempt", attempt+1, "error", err)

		if attempt == maxRetries {
			break
		}

		// delay = base * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(t.config.RetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrNetwork, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w: gemini call failed after %d attempts: %v", domain.ErrNetwork, maxRetries+1, lastErr)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text in response", ErrInvalidResponse)
	}
	return text, nil
}

var _ task.TranscriptionClient = (*Transcriber)(nil)
