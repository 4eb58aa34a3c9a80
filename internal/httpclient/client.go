// Package httpclient provides the HTTP transport used to talk to the
// VitalArbor backend: context-aware requests, per-call deadlines, bodies that
// are always read (error statuses included), and observability hooks.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vitalarbor/vitalarbor-go/internal/conf"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const (
	// DefaultTimeout bounds an exchange when no per-call timeout is given.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 16 << 20

	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialKeepAlive       = 30 * time.Second

	defaultUserAgent = "VitalArbor-Go"

	// maxLoggedBody limits debug logging of request and response bodies
	maxLoggedBody = 512
)

// Client is an HTTP client with context management and timeouts.
// It wraps the standard http.Client; every request is bounded by a deadline
// and connection setup by the dialer timeout.
//
// Thread-safe for concurrent use.
type Client struct {
	client           *http.Client
	defaultTimeout   time.Duration
	userAgent        string
	maxResponseBytes int64
	log              logger.Logger
	// Hooks for observability (metrics, logging)
	// Protected by hookMu for concurrent access safety
	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout bounds an exchange when the caller passes no timeout
	DefaultTimeout time.Duration

	// ConnectTimeout bounds TCP connection establishment (default: 10s)
	ConnectTimeout time.Duration

	// UserAgent is added to all requests
	UserAgent string

	// MaxResponseBytes caps response body reads (default: 16 MiB)
	MaxResponseBytes int64

	// Transport replaces the tuned default transport, mainly for tests
	Transport http.RoundTripper

	// Logger receives debug output; nil uses the global "transport" module
	Logger logger.Logger
}

// DefaultConfig returns a Config with the client's standard defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:   DefaultTimeout,
		ConnectTimeout:   DefaultConnectTimeout,
		UserAgent:        defaultUserAgent,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// New creates a new HTTP client with the given configuration.
// Accepts nil cfg (falls back to DefaultConfig) and does not mutate the caller's config.
func New(cfg *Config) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		if c.DefaultTimeout == 0 {
			c.DefaultTimeout = DefaultTimeout
		}
		if c.ConnectTimeout == 0 {
			c.ConnectTimeout = DefaultConnectTimeout
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent
		}
		if c.MaxResponseBytes == 0 {
			c.MaxResponseBytes = DefaultMaxResponseBytes
		}
	}

	transport := c.Transport
	if transport == nil {
		// No ResponseHeaderTimeout: hosted diagnosis legitimately holds the
		// response for minutes, the per-call deadline bounds it instead.
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   c.ConnectTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		}
	}

	log := c.Logger
	if log == nil {
		log = logger.Global().Module("transport")
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			// No client timeout - deadlines come from the request context
		},
		defaultTimeout:   c.DefaultTimeout,
		userAgent:        c.UserAgent,
		maxResponseBytes: c.MaxResponseBytes,
		log:              log,
	}
}

// do sends req through the hooks. The caller owns the deadline on req's
// context and must close the response body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	c.hookMu.RUnlock()
	if beforeHook != nil {
		beforeHook(req)
	}

	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	afterHook := c.afterResponse
	c.hookMu.RUnlock()
	if afterHook != nil {
		afterHook(req, resp, err)
	}

	return resp, err
}

// SetBeforeRequestHook sets a function to be called before each request.
// Safe to call concurrently with in-flight requests.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function to be called after each request.
// Safe to call concurrently with in-flight requests.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// debugBody renders a body for debug logs with credentials redacted.
func debugBody(b []byte) string {
	s := string(b)
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "..."
	}
	return logger.RedactSensitiveData(s)
}

// debugEnabled reports whether bodies should be logged.
func debugEnabled() bool {
	return conf.Debug()
}

// transportError classifies a failed exchange.
func transportError(ctx context.Context, err error, url string, timeout time.Duration) error {
	category := errors.CategoryNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		category = errors.CategoryCancellation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		category = errors.CategoryTimeout
	}

	return errors.New(err).
		Component("transport").
		Category(category).
		NetworkContext(url, timeout).
		Context("endpoint", endpointOf(url)).
		Build()
}

// endpointOf returns the last path segment of url, e.g. "/login".
func endpointOf(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i:]
	}
	return url
}
