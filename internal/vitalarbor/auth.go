package vitalarbor

import (
	"context"

	"github.com/antonholmquist/jason"

	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// LoginResult is what the backend says about a successful sign-in.
type LoginResult struct {
	Username string
	Message  string
	Raw      string
}

// Login checks credentials against /login.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	reply, err := c.http.PostJSON(ctx, c.url(PathLogin), creds, c.cfg.JSONTimeout)
	if err != nil {
		return nil, err
	}

	if c.bodyRejects(reply) {
		c.log.Info("login rejected",
			logger.String("username", creds.Username),
			logger.Int("status_code", reply.StatusCode))
		return nil, rejection("login", PathLogin, reply)
	}

	result := &LoginResult{Username: creds.Username, Raw: reply.Text()}
	if obj, err := jason.NewObjectFromBytes(reply.Body); err == nil {
		if msg, err := obj.GetString("message"); err == nil {
			result.Message = msg
		}
		if name, err := obj.GetString("username"); err == nil && name != "" {
			result.Username = name
		}
	}

	c.log.Info("login succeeded", logger.String("username", result.Username))
	return result, nil
}

// Signup registers a new user via /signup. A taken username yields an error
// for which IsDuplicateUser is true.
func (c *Client) Signup(ctx context.Context, creds Credentials) error {
	if err := creds.ValidateForSignup(); err != nil {
		return err
	}

	reply, err := c.http.PostJSON(ctx, c.url(PathSignup), creds, c.cfg.JSONTimeout)
	if err != nil {
		return err
	}

	if c.bodyRejects(reply) {
		c.log.Info("signup rejected",
			logger.String("username", creds.Username),
			logger.Int("status_code", reply.StatusCode))
		return rejection("signup", PathSignup, reply)
	}

	c.log.Info("signup succeeded", logger.String("username", creds.Username))
	return nil
}
