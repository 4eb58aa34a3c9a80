package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics contains Prometheus metrics for backend requests, diagnoses
// and local analysis runs.
type ClientMetrics struct {
	registry *prometheus.Registry

	// HTTP exchange metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestBytes    *prometheus.HistogramVec

	// Diagnosis metrics
	diagnosesTotal    *prometheus.CounterVec
	diagnosisDuration *prometheus.HistogramVec
	subprocessTotal   *prometheus.CounterVec
	subprocessSeconds prometheus.Histogram

	// Request start times keyed by *http.Request, set by BeforeRequest
	inflight sync.Map
}

// NewClientMetrics creates and registers the client metrics.
func NewClientMetrics(registry *prometheus.Registry) (*ClientMetrics, error) {
	m := &ClientMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ClientMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalarbor_http_requests_total",
			Help: "Total number of backend requests",
		},
		[]string{"endpoint", "status_class"}, // endpoint: /login, /diagnose; status_class: 2xx, 4xx, error
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalarbor_http_request_duration_seconds",
			Help:    "Time until the backend response headers arrived",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"endpoint"},
	)

	m.requestBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalarbor_http_request_size_bytes",
			Help:    "Size of request bodies sent to the backend",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount10), // 1KB to ~256MB
		},
		[]string{"endpoint"},
	)

	m.diagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalarbor_diagnoses_total",
			Help: "Total number of diagnosis submissions by outcome",
		},
		[]string{"mode", "outcome"}, // mode: hosted, local; outcome: success, failure, timeout, cancelled
	)

	m.diagnosisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalarbor_diagnosis_duration_seconds",
			Help:    "Time from submission to delivery of a diagnosis",
			Buckets: prometheus.ExponentialBuckets(BucketStart1s, BucketFactor2, BucketCount10), // 1s to ~8.5min
		},
		[]string{"mode"},
	)

	m.subprocessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalarbor_local_analysis_runs_total",
			Help: "Total number of local analysis process runs by outcome",
		},
		[]string{"outcome"},
	)

	m.subprocessSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitalarbor_local_analysis_duration_seconds",
			Help:    "Wall-clock time of local analysis runs",
			Buckets: prometheus.ExponentialBuckets(BucketStart1s, BucketFactor2, BucketCount10),
		},
	)
}

func (m *ClientMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.requestBytes,
		m.diagnosesTotal,
		m.diagnosisDuration,
		m.subprocessTotal,
		m.subprocessSeconds,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *ClientMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *ClientMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordHTTPRequest records one backend exchange. A zero statusCode means
// the request failed before a response arrived.
func (m *ClientMetrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, StatusClass(statusCode)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRequestSize records the size of a request body.
func (m *ClientMetrics) RecordRequestSize(endpoint string, sizeBytes int64) {
	if sizeBytes > 0 {
		m.requestBytes.WithLabelValues(endpoint).Observe(float64(sizeBytes))
	}
}

// RecordDiagnosis records a finished submission.
func (m *ClientMetrics) RecordDiagnosis(mode, outcome string, duration time.Duration) {
	m.diagnosesTotal.WithLabelValues(mode, outcome).Inc()
	if outcome == "success" {
		m.diagnosisDuration.WithLabelValues(mode).Observe(duration.Seconds())
	}
}

// RecordLocalAnalysis records a finished analysis process.
func (m *ClientMetrics) RecordLocalAnalysis(outcome string, duration time.Duration) {
	m.subprocessTotal.WithLabelValues(outcome).Inc()
	m.subprocessSeconds.Observe(duration.Seconds())
}

// BeforeRequest is an httpclient before-request hook.
func (m *ClientMetrics) BeforeRequest(req *http.Request) {
	m.inflight.Store(req, time.Now())
	m.RecordRequestSize(EndpointLabel(req.URL.Path), req.ContentLength)
}

// AfterResponse is an httpclient after-response hook.
func (m *ClientMetrics) AfterResponse(req *http.Request, resp *http.Response, err error) {
	var elapsed time.Duration
	if v, ok := m.inflight.LoadAndDelete(req); ok {
		elapsed = time.Since(v.(time.Time))
	}
	status := 0
	if err == nil && resp != nil {
		status = resp.StatusCode
	}
	m.RecordHTTPRequest(EndpointLabel(req.URL.Path), status, elapsed)
}

// StatusClass maps a status code to "2xx", "4xx" and so on, or "error".
func StatusClass(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return LabelError
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// EndpointLabel reduces a URL path to its last segment, e.g. "/diagnose".
func EndpointLabel(path string) string {
	path = strings.TrimRight(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 || i == len(path)-1 {
		return LabelUnknown
	}
	return path[i:]
}
