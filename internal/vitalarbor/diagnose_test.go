package vitalarbor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

const hostedResults = `{"results":{"riskScore":"27.5","riskCategory":"HIGH RISK","tiltAngle":"12.34°",` +
	`"species":"Prunus × yedoensis","diagnosis":"Included bark at the main union.","fixes":"Install a cable brace."}}`

func testDiagnosisRequest() DiagnosisRequest {
	return DiagnosisRequest{
		Credentials:     alice,
		Classification:  "/photos/classification.jpg",
		Tilt:            "/photos/tilt.PNG",
		Backup:          "/photos/backup.jpeg",
		UseCutout:       true,
		DetectionMethod: 2,
	}
}

func TestDiagnose_Hosted(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	type filePart struct {
		name string
		ct   string
		size int64
	}
	var texts map[string]string
	var files map[string]filePart
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathDiagnose,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			texts = map[string]string{}
			for k, v := range req.MultipartForm.Value {
				texts[k] = v[0]
			}
			files = map[string]filePart{}
			for k, v := range req.MultipartForm.File {
				files[k] = filePart{v[0].Filename, v[0].Header.Get("Content-Type"), v[0].Size}
			}
			return jsonResponder(http.StatusOK, hostedResults)(req)
		})

	result, err := client.Diagnose(t.Context(), testDiagnosisRequest())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"username":        "alice",
		"password":        "p@ssw0rd",
		"useCutout":       "true",
		"detectionMethod": "2",
	}, texts)
	assert.Equal(t, map[string]filePart{
		"classification": {"classification.jpg", "image/jpeg", 12345},
		"tilt":           {"tilt.PNG", "image/png", 6789},
		"backup":         {"backup.jpeg", "image/jpeg", 1024},
	}, files)

	assert.Equal(t, "27.5", result.RiskScore)
	assert.Equal(t, "HIGH RISK", result.RiskCategory)
	assert.Equal(t, "12.34°", result.TiltAngle)
	assert.Equal(t, "Prunus × yedoensis", result.Species)
	assert.Equal(t, diagnosis.ColorOrange, result.Color())
}

func TestDiagnose_FieldOrder(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	var body string
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathDiagnose,
		func(req *http.Request) (*http.Response, error) {
			data, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			body = string(data)
			return jsonResponder(http.StatusOK, hostedResults)(req)
		})

	_, err := client.Diagnose(t.Context(), testDiagnosisRequest())
	require.NoError(t, err)

	last := -1
	for _, name := range []string{"username", "password", "useCutout", "detectionMethod", "classification", "tilt", "backup"} {
		idx := strings.Index(body, `name="`+name+`"`)
		require.Greater(t, idx, last, name)
		last = idx
	}
}

func TestDiagnose_Preconditions(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})

	badMethod := testDiagnosisRequest()
	badMethod.DetectionMethod = 4
	guest := testDiagnosisRequest()
	guest.Credentials = Guest()

	for _, req := range []DiagnosisRequest{badMethod, guest} {
		_, err := client.Diagnose(t.Context(), req)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestDiagnose_Rejection(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathDiagnose,
		jsonResponder(http.StatusInternalServerError, `{"error":"pipeline crashed"}`))

	_, err := client.Diagnose(t.Context(), testDiagnosisRequest())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBackendRejection))
	assert.Equal(t, `{"error":"pipeline crashed"}`, errors.ContextString(err, "response_body"))
}

func TestDiagnose_Timeout(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{DiagnoseTimeout: 50 * time.Millisecond})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathDiagnose,
		func(req *http.Request) (*http.Response, error) {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(5 * time.Second):
				return jsonResponder(http.StatusOK, hostedResults)(req)
			}
		})

	_, err := client.Diagnose(t.Context(), testDiagnosisRequest())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
}

func TestDiagnose_Cancelled(t *testing.T) {
	t.Parallel()

	client, transport, _ := newMockClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, testBaseURL+PathDiagnose,
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Diagnose(ctx, testDiagnosisRequest())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
