package azure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "complete", cfg: Config{Endpoint: "https://x", APIKey: "k", Deployment: "d"}},
		{name: "missing endpoint", cfg: Config{APIKey: "k", Deployment: "d"}, wantErr: "endpoint"},
		{name: "missing key", cfg: Config{Endpoint: "https://x", Deployment: "d"}, wantErr: "api key"},
		{name: "missing all", cfg: Config{}, wantErr: "endpoint, api key, deployment"},
		{name: "blank deployment", cfg: Config{Endpoint: "https://x", APIKey: "k", Deployment: "  "}, wantErr: "deployment"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.check("speech synthesis")
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestTransport_StatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{name: "nested error message", status: 400, body: `{"error":{"message":"bad voice"}}`, sentinel: domain.ErrExternalJobFailed, message: "bad voice"},
		{name: "plain error string", status: 404, body: `{"error":"no such job"}`, sentinel: domain.ErrExternalJobFailed, message: "no such job"},
		{name: "detail field", status: 422, body: `{"detail":"invalid pdf"}`, sentinel: domain.ErrExternalJobFailed, message: "invalid pdf"},
		{name: "non json body", status: 401, body: "denied", sentinel: domain.ErrExternalJobFailed, message: "denied"},
		{name: "server error", status: 503, body: "", sentinel: domain.ErrNetwork, message: "Service Unavailable"},
		{name: "throttled", status: 429, body: `{"message":"slow down"}`, sentinel: domain.ErrNetwork, message: "slow down"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			tr := newTransport("key", nil)
			_, err := tr.do(context.Background(), http.MethodGet, srv.URL, nil, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestTransport_NetworkFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := newTransport("", nil)
	_, err := tr.do(context.Background(), http.MethodGet, url, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestTransport_AuthorizationHeader(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tr := newTransport("secret", []Option{WithHTTPClient(srv.Client())})
	_, err := tr.do(context.Background(), http.MethodGet, srv.URL, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", got)
}
