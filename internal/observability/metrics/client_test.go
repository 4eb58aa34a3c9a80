package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *ClientMetrics {
	t.Helper()
	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNewClientMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewClientMetrics(registry)
	require.NoError(t, err)
	_, err = NewClientMetrics(registry)
	assert.Error(t, err)
}

func TestHooks_RecordExchange(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	req := httptest.NewRequest(http.MethodPost, "http://backend.test/api/diagnose", strings.NewReader("body"))
	m.BeforeRequest(req)
	m.AfterResponse(req, &http.Response{StatusCode: http.StatusOK}, nil)

	req2 := httptest.NewRequest(http.MethodPost, "http://backend.test/api/login", nil)
	m.BeforeRequest(req2)
	m.AfterResponse(req2, nil, errors.New("connection refused"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/diagnose", "2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/login", LabelError)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestBytes))

	_, pending := m.inflight.Load(req)
	assert.False(t, pending)
}

func TestRecordDiagnosis(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordDiagnosis("hosted", "success", 42*time.Second)
	m.RecordDiagnosis("hosted", "cancelled", time.Second)
	m.RecordDiagnosis("local", "timeout", 300*time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(m.diagnosesTotal.WithLabelValues("hosted", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.diagnosesTotal.WithLabelValues("hosted", "cancelled")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.diagnosesTotal.WithLabelValues("local", "timeout")), 0)
	// Only successful submissions feed the duration histogram
	assert.Equal(t, 1, testutil.CollectAndCount(m.diagnosisDuration))
}

func TestRecordLocalAnalysis(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordLocalAnalysis("failure", 2*time.Second)
	m.RecordLocalAnalysis("failure", 3*time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.subprocessTotal.WithLabelValues("failure")), 0)
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2xx", StatusClass(201))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, LabelError, StatusClass(0))
}

func TestEndpointLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/login", EndpointLabel("/api/login"))
	assert.Equal(t, "/images", EndpointLabel("/api/images/"))
	assert.Equal(t, LabelUnknown, EndpointLabel(""))
	assert.Equal(t, LabelUnknown, EndpointLabel("/"))
}
