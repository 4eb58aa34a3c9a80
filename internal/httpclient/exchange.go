package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// Reply is a completed exchange. Body holds the response body whatever the
// status, so 4xx/5xx payloads reach the caller verbatim.
type Reply struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Truncated   bool
}

// Text returns the body decoded as UTF-8 text.
func (r *Reply) Text() string {
	return string(r.Body)
}

// IsSuccess reports a 2xx status.
func (r *Reply) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// IsHTML reports whether the body is an HTML document.
func (r *Reply) IsHTML() bool {
	return strings.HasPrefix(strings.ToLower(r.ContentType), "text/html")
}

// Payload is a pre-encoded request body with a known type and length.
type Payload interface {
	io.Reader
	ContentType() string
	Size() int64
}

// PostJSON sends body as a JSON document and returns the full reply.
// timeout bounds the whole exchange; zero uses the client default.
func (c *Client) PostJSON(ctx context.Context, url string, body any, timeout time.Duration) (*Reply, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to marshal JSON body: %w", err)).
			Component("transport").
			Category(errors.CategoryValidation).
			Build()
	}

	if debugEnabled() {
		c.log.Debug("POST JSON",
			logger.String("url", url),
			logger.String("body", debugBody(data)))
	}

	return c.exchange(ctx, url, "application/json", bytes.NewReader(data), int64(len(data)), timeout)
}

// PostMultipart streams a multipart payload and returns the full reply.
func (c *Client) PostMultipart(ctx context.Context, url string, payload Payload, timeout time.Duration) (*Reply, error) {
	if debugEnabled() {
		c.log.Debug("POST multipart",
			logger.String("url", url),
			logger.Int64("content_length", payload.Size()))
	}

	return c.exchange(ctx, url, payload.ContentType(), payload, payload.Size(), timeout)
}

func (c *Client) exchange(ctx context.Context, url, contentType string, body io.Reader, length int64, timeout time.Duration) (*Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create POST request: %w", err)).
			Component("transport").
			Category(errors.CategoryValidation).
			Context("endpoint", endpointOf(url)).
			Build()
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.do(req)
	if err != nil {
		return nil, transportError(ctx, err, url, timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("reading response body: %w", err), url, timeout)
	}

	reply := &Reply{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}
	if int64(len(data)) > c.maxResponseBytes {
		reply.Body = data[:c.maxResponseBytes]
		reply.Truncated = true
		c.log.Warn("response body truncated",
			logger.String("endpoint", endpointOf(url)),
			logger.Int64("limit_bytes", c.maxResponseBytes))
	}

	c.log.Debug("POST completed",
		logger.String("endpoint", endpointOf(url)),
		logger.Int("status_code", resp.StatusCode),
		logger.Int("body_bytes", len(reply.Body)),
		logger.Duration("elapsed", time.Since(start)))
	if debugEnabled() {
		c.log.Debug("response body", logger.String("body", debugBody(reply.Body)))
	}

	return reply, nil
}
