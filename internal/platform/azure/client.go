package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 2 * time.Minute

// maxErrorBody caps how much of an error response is read into the message.
const maxErrorBody = 4 << 10

// Config holds the settings of one Azure OpenAI deployment.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
}

func (c Config) check(service string) error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(c.Deployment) == "" {
		missing = append(missing, "deployment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing %s", domain.ErrConfiguration, service, strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.Endpoint, "/")
}

// Option customizes a client.
type Option func(*transport)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		t.client = client
	}
}

type transport struct {
	client *http.Client
	apiKey string
}

func newTransport(apiKey string, opts []Option) transport {
	t := transport{
		client: &http.Client{Timeout: DefaultTimeout},
		apiKey: apiKey,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// do sends the request and returns the body of a 2xx response.
func (t transport) do(ctx context.Context, method, url string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", domain.ErrNetwork, err)
	}
	return data, nil
}

func (t transport) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var body io.Reader
	var contentType string
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, err := t.do(ctx, method, url, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrExternalJobFailed, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(data)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	sentinel := domain.ErrExternalJobFailed
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		sentinel = domain.ErrNetwork
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, msg)
}

// errorMessage extracts the message from the error body shapes the services
// return: {"error":{"message":...}}, {"error":"..."}, {"message":...} or
// {"detail":...}.
func errorMessage(data []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}

	if len(body.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(body.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Detail
}
