package httpclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// newTestClient creates a Client with default configuration and registers cleanup.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	return newTestClientWithConfig(t, &cfg)
}

// newTestClientWithConfig creates a Client with custom configuration and registers cleanup.
func newTestClientWithConfig(t *testing.T, cfg *Config) *Client {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscardLogger()
	}
	client := New(cfg)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTestServer creates a test HTTP server and registers cleanup.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(func() { server.Close() })
	return server
}

// staticPayload is a minimal Payload for exchange tests.
type staticPayload struct {
	*strings.Reader
	contentType string
}

func newStaticPayload(body, contentType string) staticPayload {
	return staticPayload{Reader: strings.NewReader(body), contentType: contentType}
}

func (p staticPayload) ContentType() string { return p.contentType }
func (p staticPayload) Size() int64         { return p.Reader.Size() }
