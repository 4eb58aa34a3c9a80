// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAPISettings(&settings.API); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDiagnosisSettings(&settings.Diagnosis); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry is enabled but telemetry.dsn is empty")
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate-settings").
			Build()
	}

	return nil
}

func validateAPISettings(api *APISettings) error {
	var problems []string

	if err := validateEnvTarget(api.Target); err != nil {
		problems = append(problems, "api.target "+err.Error())
	}

	if api.BaseURL != "" {
		if _, err := parseBaseURL(api.BaseURL); err != nil {
			problems = append(problems, fmt.Sprintf("api.baseurl is invalid: %v", err))
		}
	}

	timeouts := map[string]int64{
		"api.connecttimeout":  int64(api.ConnectTimeout),
		"api.jsontimeout":     int64(api.JSONTimeout),
		"api.uploadtimeout":   int64(api.UploadTimeout),
		"api.diagnosetimeout": int64(api.DiagnoseTimeout),
	}
	for key, value := range timeouts {
		if value <= 0 {
			problems = append(problems, key+" must be positive")
		}
	}

	if api.UploadConcurrency < 1 {
		problems = append(problems, "api.uploadconcurrency must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return nil
}

func validateDiagnosisSettings(d *DiagnosisSettings) error {
	if err := validateEnvMode(d.Mode); err != nil {
		return fmt.Errorf("diagnosis.mode %w", err)
	}

	if d.Mode != ModeLocal {
		return nil
	}

	switch {
	case d.Local.Interpreter == "":
		return fmt.Errorf("diagnosis.local.interpreter is required in local mode")
	case d.Local.Script == "":
		return fmt.Errorf("diagnosis.local.script is required in local mode")
	case d.Local.Timeout <= 0:
		return fmt.Errorf("diagnosis.local.timeout must be positive")
	}

	return nil
}
