package vitalarbor

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	var sent map[string]string
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathLogin,
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &sent))
			return jsonResponder(http.StatusOK, `{"token":"abc"}`)(req)
		})

	result, err := client.Login(t.Context(), alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, map[string]string{"username": "alice", "password": "p@ssw0rd"}, sent)
}

func TestLogin_BodyErrorRejects(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathLogin,
		jsonResponder(http.StatusOK, `{"error":"Invalid credentials"}`))

	_, err := client.Login(t.Context(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBackendRejection))
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Equal(t, `{"error":"Invalid credentials"}`, errors.ContextString(err, "response_body"))
}

func TestLogin_StatusAuthoritative(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{StatusAuthoritative: true})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathLogin,
		jsonResponder(http.StatusOK, `{"message":"no error detected"}`))

	result, err := client.Login(t.Context(), alice)
	require.NoError(t, err)
	assert.Equal(t, "no error detected", result.Message)
}

func TestLogin_HTTPErrorStatus(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{StatusAuthoritative: true})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathLogin,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusNotFound,
				"<!DOCTYPE html><html><body><pre>Cannot POST /api/login</pre></body></html>")
			resp.Header.Set("Content-Type", "text/html; charset=utf-8")
			return resp, nil
		})

	_, err := client.Login(t.Context(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBackendRejection))
	assert.Contains(t, err.Error(), "Cannot POST /api/login")
	assert.NotContains(t, err.Error(), "<pre>")
	assert.Contains(t, errors.ContextString(err, "response_body"), "<pre>")
}

func TestLogin_Preconditions(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	for _, creds := range []Credentials{
		{Username: "", Password: "x"},
		{Username: "alice", Password: ""},
		Guest(),
	} {
		_, err := client.Login(t.Context(), creds)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestSignup_Duplicate(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathSignup,
		jsonResponder(http.StatusOK, `{"error":"user already exists"}`))

	err := client.Signup(t.Context(), Credentials{Username: "bob", Password: "abcdef"})
	require.Error(t, err)
	assert.True(t, IsDuplicateUser(err))
}

func TestSignup_DuplicateWithErrorStatus(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{StatusAuthoritative: true})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathSignup,
		jsonResponder(http.StatusBadRequest, `{"error":"User already exists"}`))

	err := client.Signup(t.Context(), Credentials{Username: "bob", Password: "abcdef"})
	require.Error(t, err)
	assert.True(t, IsDuplicateUser(err))
}

func TestSignup_OtherRejection(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathSignup,
		jsonResponder(http.StatusInternalServerError, `{"error":"Server error"}`))

	err := client.Signup(t.Context(), Credentials{Username: "bob", Password: "abcdef"})
	require.Error(t, err)
	assert.False(t, IsDuplicateUser(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryBackendRejection))
}

func TestSignup_ShortPasswordRejectedLocally(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	err := client.Signup(t.Context(), Credentials{Username: "bob", Password: "abc"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestSignup_Success(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathSignup,
		jsonResponder(http.StatusCreated, `{"message":"User created successfully"}`))

	require.NoError(t, client.Signup(t.Context(), Credentials{Username: "bob", Password: "abcdef"}))
}

func TestCredentials_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice", alice.String())
	assert.NotContains(t, alice.String(), alice.Password)
	assert.Equal(t, "guest", Guest().String())
}
