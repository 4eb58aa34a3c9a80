// Package cli wires settings, logging, telemetry, metrics and the API client
// into the services the command tree uses.
package cli

import (
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/vitalarbor/vitalarbor-go/internal/conf"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/observability"
	"github.com/vitalarbor/vitalarbor-go/internal/orchestrator"
	"github.com/vitalarbor/vitalarbor-go/internal/pipeline"
	"github.com/vitalarbor/vitalarbor-go/internal/telemetry"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// App holds the process-wide services of one CLI invocation.
type App struct {
	Version string

	Settings *conf.Settings
	Metrics  *observability.Metrics
	HTTP     *httpclient.Client
	Client   *vitalarbor.Client

	Fs afero.Fs

	central *logger.CentralLogger
	log     logger.Logger

	wg   sync.WaitGroup
	quit chan struct{}
	once sync.Once
}

// New returns an App reading files from the OS filesystem.
func New(version string) *App {
	return &App{
		Version: version,
		Fs:      afero.NewOsFs(),
		quit:    make(chan struct{}),
	}
}

// Init loads configuration and starts the ambient services. It must be
// called once before any other method.
func (a *App) Init(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	return a.InitWithSettings(settings)
}

// InitWithSettings starts the ambient services from already loaded settings.
func (a *App) InitWithSettings(settings *conf.Settings) error {
	a.Settings = settings

	logCfg := settings.Logging
	if settings.Debug {
		logCfg.DefaultLevel = string(logger.LogLevelDebug)
		if logCfg.Console != nil {
			console := *logCfg.Console
			console.Level = string(logger.LogLevelDebug)
			logCfg.Console = &console
		}
	}
	central, err := logger.NewCentralLogger(&logCfg)
	if err != nil {
		return errors.New(err).
			Component("cli").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(central)
	a.central = central
	a.log = central.Module("cli")

	if err := telemetry.Init(settings.Telemetry, a.Version); err != nil {
		a.log.Warn("telemetry disabled", logger.Error(err))
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return err
	}
	if settings.Metrics.Listen != "" {
		endpoint, err := observability.NewEndpoint(settings.Metrics.Listen, a.Metrics)
		if err != nil {
			return err
		}
		if err := endpoint.Start(&a.wg, a.quit); err != nil {
			a.log.Warn("metrics endpoint unavailable",
				logger.String("address", settings.Metrics.Listen),
				logger.Error(err))
		}
	}

	a.HTTP = httpclient.New(&httpclient.Config{
		ConnectTimeout: settings.API.ConnectTimeout,
		UserAgent:      settings.API.UserAgent,
	})
	a.HTTP.SetBeforeRequestHook(a.Metrics.Client.BeforeRequest)
	a.HTTP.SetAfterResponseHook(a.Metrics.Client.AfterResponse)

	a.Client = vitalarbor.New(a.HTTP, vitalarbor.Config{
		BaseURL:             settings.API.ResolvedBaseURL(),
		JSONTimeout:         settings.API.JSONTimeout,
		UploadTimeout:       settings.API.UploadTimeout,
		DiagnoseTimeout:     settings.API.DiagnoseTimeout,
		StatusAuthoritative: settings.API.StatusAuthoritative,
		UploadConcurrency:   settings.API.UploadConcurrency,
	}, vitalarbor.WithFs(a.Fs))

	a.log.Debug("client initialised",
		logger.String("base_url", settings.API.ResolvedBaseURL()),
		logger.String("mode", settings.Diagnosis.Mode),
		logger.String("version", a.Version))
	return nil
}

// Logger returns the "cli" module logger.
func (a *App) Logger() logger.Logger {
	if a.log == nil {
		return logger.Global().Module("cli")
	}
	return a.log
}

// NewAnalyzer returns the analyzer for the configured diagnosis mode.
func (a *App) NewAnalyzer() (orchestrator.Analyzer, error) {
	if a.Settings.Diagnosis.Mode != conf.ModeLocal {
		return orchestrator.HostedAnalyzer{Client: a.Client}, nil
	}

	local := a.Settings.Diagnosis.Local
	runner, err := pipeline.NewRunner(pipeline.Config{
		Interpreter: local.Interpreter,
		Script:      local.Script,
		Timeout:     local.Timeout,
	}, pipeline.WithObserver(func(outcome pipeline.Outcome, elapsed time.Duration) {
		a.Metrics.Client.RecordLocalAnalysis(string(outcome), elapsed)
	}))
	if err != nil {
		return nil, err
	}
	return orchestrator.LocalAnalyzer{Runner: runner}, nil
}

// NewOrchestrator returns an orchestrator delivering on ui, with metrics and
// the auxiliary flows wired in.
func (a *App) NewOrchestrator(ui orchestrator.Dispatcher, opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	analyzer, err := a.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	base := []orchestrator.Option{
		orchestrator.WithFs(a.Fs),
		orchestrator.WithClient(a.Client),
		orchestrator.WithObserver(func(mode string, outcome orchestrator.Outcome, elapsed time.Duration) {
			a.Metrics.Client.RecordDiagnosis(mode, string(outcome), elapsed)
		}),
	}
	return orchestrator.New(analyzer, ui, append(base, opts...)...), nil
}

// Close stops background services and flushes logs and telemetry.
func (a *App) Close() {
	a.once.Do(func() {
		close(a.quit)
		a.wg.Wait()
		if a.HTTP != nil {
			a.HTTP.Close()
		}
		telemetry.Shutdown(telemetry.DefaultFlushTimeout)
		if a.central != nil {
			_ = a.central.Close()
		}
	})
}

// Session returns an orchestrator whose results are delivered on a fresh
// event loop, with creds preset. The caller services the loop and closes
// both when done.
func (a *App) Session(creds vitalarbor.Credentials, opts ...orchestrator.Option) (*orchestrator.Orchestrator, *orchestrator.EventLoop, error) {
	loop := orchestrator.NewEventLoop()
	o, err := a.NewOrchestrator(loop, opts...)
	if err != nil {
		loop.Close()
		return nil, nil, err
	}
	o.SetCredentials(creds)
	return o, loop, nil
}
