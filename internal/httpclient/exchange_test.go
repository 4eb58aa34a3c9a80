package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

func TestPostJSON_SendsExactEncoding(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Login successful","username":"alice"}`))
	})

	client := newTestClient(t)
	creds := map[string]string{"username": "alice", "password": "p@ssw0rd"}

	reply, err := client.PostJSON(t.Context(), server.URL+"/login", creds, time.Second)
	require.NoError(t, err)

	want, err := json.Marshal(creds)
	require.NoError(t, err)
	assert.Equal(t, want, gotBody, "body must equal the encoder output")
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
	assert.Equal(t, http.StatusOK, reply.StatusCode)
	assert.True(t, reply.IsSuccess())
	assert.Contains(t, reply.Text(), "Login successful")
}

func TestPostJSON_ErrorBodyIsReturned(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"User already exists"}`))
	})

	client := newTestClient(t)
	reply, err := client.PostJSON(t.Context(), server.URL+"/signup", map[string]string{"username": "bob"}, time.Second)

	require.NoError(t, err, "a 4xx is a reply, not a transport failure")
	assert.Equal(t, http.StatusBadRequest, reply.StatusCode)
	assert.False(t, reply.IsSuccess())
	assert.Equal(t, `{"error":"User already exists"}`, reply.Text())
}

func TestPostMultipart_StreamsPayload(t *testing.T) {
	var gotType string
	var gotLength int64
	var gotBody string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(t)
	payload := newStaticPayload("--b\r\nbody\r\n--b--\r\n", "multipart/form-data; boundary=b")

	reply, err := client.PostMultipart(t.Context(), server.URL+"/upload", payload, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "multipart/form-data; boundary=b", gotType)
	assert.Equal(t, int64(len(gotBody)), gotLength)
	assert.Equal(t, "--b\r\nbody\r\n--b--\r\n", gotBody)
	assert.Equal(t, http.StatusCreated, reply.StatusCode)
}

func TestExchange_TimeoutIsClassified(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// The server notices a dropped connection only once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := newTestClient(t)
	_, err := client.PostJSON(t.Context(), server.URL+"/diagnose", map[string]string{}, 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout), "got %v", err)
	assert.Equal(t, "/diagnose", errors.ContextString(err, "endpoint"))
}

func TestExchange_CancellationIsClassified(t *testing.T) {
	started := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	})

	client := newTestClient(t)
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.PostJSON(ctx, server.URL+"/diagnose", map[string]string{}, 5*time.Second)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation), "got %v", err)
}

func TestExchange_ConnectionRefusedIsNetworkError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := newTestClient(t)
	_, err = client.PostJSON(t.Context(), "http://"+addr+"/api/login", map[string]string{}, time.Second)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork), "got %v", err)
}

func TestExchange_TruncatesOversizedBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://backend.test/api/images",
		httpmock.NewStringResponder(http.StatusOK, `{"images":[{"url":"/uploads/a.jpg"}]}`))

	cfg := DefaultConfig()
	cfg.Transport = transport
	cfg.MaxResponseBytes = 10
	client := newTestClientWithConfig(t, &cfg)

	reply, err := client.PostJSON(t.Context(), "http://backend.test/api/images", map[string]string{}, time.Second)
	require.NoError(t, err)

	assert.True(t, reply.Truncated)
	assert.Len(t, reply.Body, 10)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestReply_IsHTML(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Reply{ContentType: "text/html; charset=utf-8"}).IsHTML())
	assert.False(t, (&Reply{ContentType: "application/json"}).IsHTML())
}

func TestEndpointOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/login", endpointOf("http://localhost:3000/api/login"))
	assert.Equal(t, "/images", endpointOf("http://10.0.2.2:3000/api/images?x=1"))
	assert.Equal(t, "plain", endpointOf("plain"))
}
