package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Client.RecordDiagnosis("local", "success", 5*time.Second)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vitalarbor_diagnoses_total{mode="local",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint("", m)
	require.Error(t, err)

	e, err := NewEndpoint("127.0.0.1:0", m)
	require.NoError(t, err)
	assert.Same(t, m, e.GetMetrics())

	var wg sync.WaitGroup
	quit := make(chan struct{})
	require.NoError(t, e.Start(&wg, quit))
	close(quit)
	wg.Wait()
}
