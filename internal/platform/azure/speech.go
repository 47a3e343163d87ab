package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// SpeechClient synthesizes speech with an Azure OpenAI text-to-speech
// deployment.
type SpeechClient struct {
	cfg Config
	t   transport
}

// NewSpeechClient creates the client.
func NewSpeechClient(cfg Config, opts ...Option) *SpeechClient {
	return &SpeechClient{cfg: cfg, t: newTransport(cfg.APIKey, opts)}
}

// CheckConfig reports missing settings.
func (c *SpeechClient) CheckConfig() error {
	return c.cfg.check("speech synthesis")
}

type speechBody struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
	Instructions   string  `json:"instructions,omitempty"`
}

// Synthesize returns the encoded audio for req.
func (c *SpeechClient) Synthesize(ctx context.Context, req domain.SpeechSynthesisRequest) ([]byte, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/audio/speech?api-version=%s",
		c.cfg.baseURL(), url.PathEscape(c.cfg.Deployment), url.QueryEscape(c.cfg.APIVersion))

	body := speechBody{
		Model:          c.cfg.Deployment,
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: string(req.Format),
		Speed:          req.Speed,
		Instructions:   req.Instructions,
	}

	payload, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	audio, err := c.t.do(ctx, http.MethodPost, endpoint, payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech synthesis: %w: empty audio response", domain.ErrExternalJobFailed)
	}
	return audio, nil
}

var _ task.SpeechClient = (*SpeechClient)(nil)
