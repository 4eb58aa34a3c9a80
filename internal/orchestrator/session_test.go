package orchestrator

import (
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

func newSessionOrchestrator(t *testing.T) (*Orchestrator, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: transport, Logger: logger.NewDiscardLogger()})
	t.Cleanup(hc.Close)
	client := vitalarbor.New(hc, vitalarbor.Config{BaseURL: "http://backend.test/api"},
		vitalarbor.WithLogger(logger.NewDiscardLogger()))

	o := New(HostedAnalyzer{Client: client}, Inline, WithClient(client), WithLogger(logger.NewDiscardLogger()))
	t.Cleanup(o.Close)
	return o, transport
}

func TestSession_LoginKeepsCredentials(t *testing.T) {
	t.Parallel()

	o, transport := newSessionOrchestrator(t)
	transport.RegisterResponder(http.MethodPost, "http://backend.test/api/login",
		httpmock.NewStringResponder(http.StatusOK, `{"message":"Login successful","username":"alice"}`))

	result, err := o.Login(t.Context(), testCreds).Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Login successful", result.Message)
	assert.Equal(t, testCreds, o.Credentials())
}

func TestSession_FailedLoginKeepsPrevious(t *testing.T) {
	t.Parallel()

	o, transport := newSessionOrchestrator(t)
	transport.RegisterResponder(http.MethodPost, "http://backend.test/api/login",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"Invalid credentials"}`))

	_, err := o.Login(t.Context(), testCreds).Wait(t.Context())
	require.Error(t, err)
	assert.Equal(t, vitalarbor.Credentials{}, o.Credentials())
}

func TestSession_GuestIsRefusedLocally(t *testing.T) {
	t.Parallel()

	o, transport := newSessionOrchestrator(t)
	o.EnterGuest()

	task := o.ListImages(t.Context())
	<-task.Done()
	_, err := task.Result()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = o.UploadImage(t.Context(), "/photo.jpg").Wait(t.Context())
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestSession_ListImagesUsesStoredCredentials(t *testing.T) {
	t.Parallel()

	o, transport := newSessionOrchestrator(t)
	transport.RegisterResponder(http.MethodPost, "http://backend.test/api/images",
		httpmock.NewStringResponder(http.StatusOK, `{"images":[]}`))
	o.SetCredentials(testCreds)

	list, err := o.ListImages(t.Context()).Wait(t.Context())
	require.NoError(t, err)
	assert.True(t, list.Empty)
}

func TestSession_SignupShortPassword(t *testing.T) {
	t.Parallel()

	o, transport := newSessionOrchestrator(t)
	_, err := o.Signup(t.Context(), vitalarbor.Credentials{Username: "bob", Password: "abc"}).Wait(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestSession_NoClient(t *testing.T) {
	t.Parallel()

	o := New(blockingAnalyzer(), Inline, WithLogger(logger.NewDiscardLogger()))
	_, err := o.Login(t.Context(), testCreds).Wait(t.Context())
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
