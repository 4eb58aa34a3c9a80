package httpclient

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.Equal(t, DefaultMaxResponseBytes, client.maxResponseBytes)
	})

	t.Run("zero values use defaults without touching the caller's config", func(t *testing.T) {
		cfg := Config{UserAgent: "VitalArbor-Desktop/2.0"}
		client := New(&cfg)

		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, "VitalArbor-Desktop/2.0", client.userAgent)
		assert.Zero(t, cfg.DefaultTimeout, "caller config must not be mutated")
	})
}

func TestExchange_SetsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.Copy(io.Discard, r.Body)
	})

	client := newTestClientWithConfig(t, &Config{UserAgent: "VitalArbor-Test/1.0"})
	_, err := client.PostJSON(t.Context(), server.URL+"/login", map[string]string{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "VitalArbor-Test/1.0", gotUA)
}

func TestExchange_ZeroTimeoutUsesClientDefault(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.PostJSON(t.Context(), server.URL+"/images", map[string]string{}, 0)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExchange_PerCallTimeoutOverridesDefault(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"message":"Upload successful"}`))
	})

	// The default alone would expire; the longer per-call deadline wins.
	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 10 * time.Millisecond})
	reply, err := client.PostMultipart(t.Context(), server.URL+"/upload",
		newStaticPayload("--b--\r\n", "multipart/form-data; boundary=b"), 2*time.Second)

	require.NoError(t, err)
	assert.Contains(t, reply.Text(), "Upload successful")
}

func TestExchange_DeadlineCoversSlowBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"results":{}}`))
	})

	client := newTestClient(t)
	_, err := client.PostJSON(t.Context(), server.URL+"/diagnose", map[string]string{}, 100*time.Millisecond)

	require.Error(t, err, "headers arriving in time must not lift the deadline off the body read")
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout), "got %v", err)
}

func TestExchange_Hooks(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://backend.test/api/signup",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"User already exists"}`))

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	var before, after atomic.Int32
	var gotStatus atomic.Int32
	client.SetBeforeRequestHook(func(r *http.Request) {
		before.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	})
	client.SetAfterResponseHook(func(r *http.Request, resp *http.Response, err error) {
		after.Add(1)
		if resp != nil {
			gotStatus.Store(int32(resp.StatusCode))
		}
	})

	_, err := client.PostJSON(t.Context(), "http://backend.test/api/signup", map[string]string{}, time.Second)
	require.NoError(t, err)

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.Equal(t, int32(http.StatusBadRequest), gotStatus.Load())

	// Transport failures still reach the after hook.
	var failed atomic.Bool
	client.SetAfterResponseHook(func(_ *http.Request, _ *http.Response, err error) {
		failed.Store(err != nil)
	})
	_, err = client.PostJSON(t.Context(), "http://backend.test/api/unregistered", map[string]string{}, time.Second)
	require.Error(t, err)
	assert.True(t, failed.Load())
}

func TestExchange_ConcurrentUploads(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		received.Add(1)
		_, _ = w.Write([]byte(`{"message":"Upload successful"}`))
	})

	client := newTestClient(t)
	const uploads = 8

	var wg sync.WaitGroup
	errs := make(chan error, uploads)
	for range uploads {
		wg.Go(func() {
			payload := newStaticPayload("--b--\r\n", "multipart/form-data; boundary=b")
			if _, err := client.PostMultipart(t.Context(), server.URL+"/upload", payload, 2*time.Second); err != nil {
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("upload failed: %v", err)
	}
	assert.Equal(t, int32(uploads), received.Load())
}

func TestClose(t *testing.T) {
	t.Parallel()

	client := New(nil)
	assert.NotPanics(t, client.Close)
	assert.NotPanics(t, client.Close, "closing twice is harmless")
}
