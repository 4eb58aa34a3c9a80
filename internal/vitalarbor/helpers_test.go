package vitalarbor

import (
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const testBaseURL = "http://backend.test/api"

var alice = Credentials{Username: "alice", Password: "p@ssw0rd"}

// newMockClient returns a Client whose requests are answered by the
// returned httpmock transport, with photos available on an in-memory fs.
func newMockClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport, afero.Fs) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{
		Transport: transport,
		Logger:    logger.NewDiscardLogger(),
	})
	t.Cleanup(hc.Close)

	fs := afero.NewMemMapFs()
	writePhoto(t, fs, "/photos/classification.jpg", 12345)
	writePhoto(t, fs, "/photos/tilt.PNG", 6789)
	writePhoto(t, fs, "/photos/backup.jpeg", 1024)

	if cfg.BaseURL == "" {
		cfg.BaseURL = testBaseURL + "/"
	}
	client := New(hc, cfg, WithFs(fs), WithLogger(logger.NewDiscardLogger()))
	return client, transport, fs
}

func writePhoto(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

// jsonResponder answers with status and a JSON body.
func jsonResponder(status int, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	}
}
