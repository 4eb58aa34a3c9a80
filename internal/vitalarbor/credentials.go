package vitalarbor

import (
	"strings"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

// MinPasswordLength is enforced locally before a signup is sent.
const MinPasswordLength = 6

// Credentials identify the user on every request. There is no session; the
// pair is sent each time.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// Guest sessions have no password and may not call authenticated endpoints
	Guest bool `json:"-"`
}

// Guest returns guest-mode credentials.
func Guest() Credentials {
	return Credentials{Guest: true}
}

// Validate checks that the credentials can be sent to an authenticated
// endpoint.
func (c Credentials) Validate() error {
	switch {
	case c.Guest:
		return precondition("guest mode: sign in to use this feature", "credentials")
	case strings.TrimSpace(c.Username) == "":
		return precondition("username is required", "username")
	case c.Password == "":
		return precondition("password is required", "password")
	}
	return nil
}

// ValidateForSignup additionally enforces the minimum password length.
func (c Credentials) ValidateForSignup() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len([]rune(c.Password)) < MinPasswordLength {
		return precondition("password must be at least 6 characters", "password")
	}
	return nil
}

// String never includes the password.
func (c Credentials) String() string {
	if c.Guest {
		return "guest"
	}
	return c.Username
}

func precondition(msg, field string) error {
	return errors.Newf("%s", msg).
		Component("vitalarbor").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
