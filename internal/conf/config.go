// Package conf provides configuration management for the VitalArbor client.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Deployment targets and their default API base URLs.
const (
	TargetDesktop  = "desktop"
	TargetEmulator = "emulator"

	DesktopBaseURL  = "http://localhost:3000/api"
	EmulatorBaseURL = "http://10.0.2.2:3000/api"
)

// Diagnosis modes. The mode is fixed for the lifetime of the process.
const (
	ModeHosted = "hosted"
	ModeLocal  = "local"
)

// Settings contains all configuration options for the VitalArbor client.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable verbose logging

	API       APISettings          `yaml:"api"`
	Diagnosis DiagnosisSettings    `yaml:"diagnosis"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Telemetry TelemetrySettings    `yaml:"telemetry"`
	Metrics   MetricsSettings      `yaml:"metrics"`
	Mock      MockBackendSettings  `yaml:"mock"`
}

// APISettings contains the backend endpoint and transport timeouts.
type APISettings struct {
	Target              string        `yaml:"target"`              // desktop or emulator
	BaseURL             string        `yaml:"baseurl"`             // overrides the target default when set
	ConnectTimeout      time.Duration `yaml:"connecttimeout"`      // dial timeout for every request
	JSONTimeout         time.Duration `yaml:"jsontimeout"`         // deadline for login, signup and images
	UploadTimeout       time.Duration `yaml:"uploadtimeout"`       // deadline for single image uploads
	DiagnoseTimeout     time.Duration `yaml:"diagnosetimeout"`     // deadline for hosted diagnosis
	UserAgent           string        `yaml:"useragent"`           // User-Agent header value
	StatusAuthoritative bool          `yaml:"statusauthoritative"` // judge login/signup by HTTP status instead of body text
	UploadConcurrency   int           `yaml:"uploadconcurrency"`   // parallel uploads for multi-file uploads
}

// DiagnosisSettings selects where analysis runs.
type DiagnosisSettings struct {
	Mode  string                `yaml:"mode"` // hosted or local
	Local LocalPipelineSettings `yaml:"local"`
}

// LocalPipelineSettings describes the local analysis process.
type LocalPipelineSettings struct {
	Interpreter string        `yaml:"interpreter"` // python executable
	Script      string        `yaml:"script"`      // path to the analysis script
	Timeout     time.Duration `yaml:"timeout"`     // wall-clock cap for one run
}

// TelemetrySettings controls opt-in error reporting.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// MetricsSettings controls the optional Prometheus endpoint.
type MetricsSettings struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// MockBackendSettings configures the development backend.
type MockBackendSettings struct {
	Listen string `yaml:"listen"`
}

// ResolvedBaseURL returns the configured base URL, or the default for the
// deployment target.
func (a *APISettings) ResolvedBaseURL() string {
	if a.BaseURL != "" {
		return a.BaseURL
	}
	if a.Target == TargetEmulator {
		return EmulatorBaseURL
	}
	return DesktopBaseURL
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, the optional .env file and environment
// variables into Settings. An empty configFile searches the default paths.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	// A missing .env file is the normal case
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		GetLogger().Warn("failed to read .env file", logger.Error(err))
	}

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	if err := bindEnvVars(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	SetDebug(settings.Debug)
	settingsInstance = settings
	return settings, nil
}

// initViper registers defaults and reads the config file, if any.
func initViper(configFile string) error {
	setDefaultConfig()
	viper.SetConfigType("yaml")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			// Defaults are complete; a config file is optional
			return nil
		}
		return errors.New(fmt.Errorf("error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			FileContext(configFile, 0).
			Build()
	}

	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfigYAML returns the commented default configuration.
func DefaultConfigYAML() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// SaveYAMLConfig writes settings to configPath atomically.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// parseBaseURL accepts only absolute http(s) URLs.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}
