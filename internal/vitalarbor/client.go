// Package vitalarbor is the client for the VitalArbor backend: sign-in,
// sign-up, image listing and upload, and hosted diagnosis.
package vitalarbor

import (
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// Endpoint paths relative to the base URL.
const (
	PathLogin    = "/login"
	PathSignup   = "/signup"
	PathImages   = "/images"
	PathUpload   = "/upload"
	PathDiagnose = "/diagnose"
)

// Default per-call deadlines.
const (
	DefaultJSONTimeout       = 10 * time.Second
	DefaultUploadTimeout     = 30 * time.Second
	DefaultDiagnoseTimeout   = 300 * time.Second
	DefaultUploadConcurrency = 3
)

// Config configures a Client.
type Config struct {
	BaseURL         string
	JSONTimeout     time.Duration
	UploadTimeout   time.Duration
	DiagnoseTimeout time.Duration

	// StatusAuthoritative makes a 2xx status alone mean success for login
	// and signup, ignoring "error" in the body.
	StatusAuthoritative bool

	// UploadConcurrency bounds UploadImages worker tasks.
	UploadConcurrency int
}

// Client talks to one backend. It holds no per-user state and is safe for
// concurrent use.
type Client struct {
	http    *httpclient.Client
	baseURL string
	cfg     Config
	fs      afero.Fs
	log     logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithFs replaces the OS filesystem used to read images.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

// WithLogger overrides the "vitalarbor" module logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client sending requests through hc.
func New(hc *httpclient.Client, cfg Config, opts ...Option) *Client {
	if cfg.JSONTimeout <= 0 {
		cfg.JSONTimeout = DefaultJSONTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.DiagnoseTimeout <= 0 {
		cfg.DiagnoseTimeout = DefaultDiagnoseTimeout
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = DefaultUploadConcurrency
	}

	c := &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		fs:      afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("vitalarbor")
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fs returns the filesystem images are read from.
func (c *Client) Fs() afero.Fs {
	return c.fs
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}
