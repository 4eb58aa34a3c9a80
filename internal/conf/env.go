// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// Environment variables read directly by the CLI rather than through viper.
// Credentials are never persisted in the config file.
const (
	EnvUsername = "VITALARBOR_USERNAME"
	EnvPassword = "VITALARBOR_PASSWORD"
)

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "VITALARBOR_DEBUG", validateEnvBool},

		// Backend
		{"api.target", "VITALARBOR_TARGET", validateEnvTarget},
		{"api.baseurl", "VITALARBOR_BASEURL", validateEnvURL},
		{"api.connecttimeout", "VITALARBOR_CONNECT_TIMEOUT", validateEnvDuration},
		{"api.diagnosetimeout", "VITALARBOR_DIAGNOSE_TIMEOUT", validateEnvDuration},
		{"api.statusauthoritative", "VITALARBOR_STATUS_AUTHORITATIVE", validateEnvBool},

		// Diagnosis
		{"diagnosis.mode", "VITALARBOR_MODE", validateEnvMode},
		{"diagnosis.local.interpreter", "VITALARBOR_INTERPRETER", nil},
		{"diagnosis.local.script", "VITALARBOR_SCRIPT", nil},
		{"diagnosis.local.timeout", "VITALARBOR_LOCAL_TIMEOUT", validateEnvDuration},

		// Observability
		{"telemetry.enabled", "VITALARBOR_TELEMETRY", validateEnvBool},
		{"telemetry.dsn", "VITALARBOR_TELEMETRY_DSN", nil},
		{"metrics.listen", "VITALARBOR_METRICS_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 30s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvTarget(value string) error {
	if value != TargetDesktop && value != TargetEmulator {
		return fmt.Errorf("must be %q or %q", TargetDesktop, TargetEmulator)
	}
	return nil
}

func validateEnvMode(value string) error {
	if value != ModeHosted && value != ModeLocal {
		return fmt.Errorf("must be %q or %q", ModeHosted, ModeLocal)
	}
	return nil
}

func validateEnvURL(value string) error {
	_, err := parseBaseURL(value)
	return err
}
