package vitalarbor

import (
	"fmt"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
)

const (
	errorMarker     = "error"
	duplicateMarker = "already exists"
	maxMessageLen   = 200
)

// bodyRejects reports whether reply is a failure under the body-substring
// rule: any non-2xx status, or a body mentioning "error" unless the status
// is authoritative.
func (c *Client) bodyRejects(reply *httpclient.Reply) bool {
	if !reply.IsSuccess() {
		return true
	}
	if c.cfg.StatusAuthoritative {
		return false
	}
	return strings.Contains(reply.Text(), errorMarker)
}

// IsDuplicateUser reports whether err is a signup rejected because the
// username is taken.
func IsDuplicateUser(err error) bool {
	return errors.IsCategory(err, errors.CategoryConflict)
}

// rejection builds a BackendRejection carrying the full response body.
func rejection(operation, endpoint string, reply *httpclient.Reply) error {
	category := errors.CategoryBackendRejection
	if operation == "signup" && strings.Contains(strings.ToLower(reply.Text()), duplicateMarker) {
		category = errors.CategoryConflict
	}

	return errors.New(fmt.Errorf("%s rejected (HTTP %d): %s", operation, reply.StatusCode, Message(reply))).
		Component("vitalarbor").
		Category(category).
		Context("operation", operation).
		Context("endpoint", endpoint).
		Context("status_code", reply.StatusCode).
		Context("response_body", reply.Text()).
		Build()
}

// Message extracts a human-readable message from a reply: the "error" or
// "message" member of a JSON body, HTML rendered as text, or the trimmed
// body itself.
func Message(reply *httpclient.Reply) string {
	text := reply.Text()
	if obj, err := jason.NewObjectFromBytes(reply.Body); err == nil {
		for _, key := range []string{"error", "message"} {
			if s, err := obj.GetString(key); err == nil && s != "" {
				return s
			}
		}
	}
	if reply.IsHTML() || looksLikeHTML(text) {
		text = html2text.HTML2Text(text)
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen] + "..."
	}
	if text == "" {
		return "empty response"
	}
	return text
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
