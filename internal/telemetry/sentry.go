// Package telemetry wires opt-in error reporting to Sentry.
//
// Nothing is sent unless the user enables telemetry and supplies a DSN. Every
// event passes through a privacy filter that strips host, user and runtime
// details before it leaves the process.
package telemetry

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/vitalarbor/vitalarbor-go/internal/conf"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// DefaultFlushTimeout bounds how long Shutdown waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var enabled atomic.Bool

// Option adjusts the Sentry client options before initialisation.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// WithEnvironment overrides the reported environment name.
func WithEnvironment(env string) Option {
	return func(o *sentry.ClientOptions) {
		o.Environment = env
	}
}

// Init starts error reporting when enabled in settings. A disabled config is
// a no-op. Enabling without a DSN is a configuration error.
func Init(cfg conf.TelemetrySettings, release string, opts ...Option) error {
	log := getLogger()

	if !cfg.Enabled {
		log.Debug("telemetry disabled (opt-in required)")
		return nil
	}
	if cfg.DSN == "" {
		return errors.Newf("telemetry enabled without a dsn").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("setting", "telemetry.dsn").
			Build()
	}

	options := sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          "vitalarbor@" + release,
		BeforeSend:       beforeSend,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	configureScope(release)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	enabled.Store(true)

	log.Info("telemetry enabled",
		logger.String("release", options.Release),
		logger.String("environment", options.Environment))
	return nil
}

// Enabled reports whether Init turned reporting on.
func Enabled() bool {
	return enabled.Load()
}

// Flush waits up to timeout for buffered events to be delivered.
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// Shutdown detaches the error reporter and flushes pending events.
func Shutdown(timeout time.Duration) {
	if !enabled.Swap(false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	if !sentry.Flush(timeout) {
		getLogger().Warn("telemetry flush timed out", logger.Duration("timeout", timeout))
	}
}

func configureScope(release string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "vitalarbor",
			"version":    release,
			"go_version": runtime.Version(),
		})
	})
}

// beforeSend drops informational events and scrubs the rest.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	// Validation, conflict and cancellation are user-driven, not faults.
	if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
		return nil
	}
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters removes identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
