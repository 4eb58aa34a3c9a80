// Package pipeline runs the local tree analysis script as a subprocess.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const (
	// DefaultTimeout is the wall-clock cap on one analysis run.
	DefaultTimeout = 300 * time.Second

	// DefaultInterpreter runs the analysis script.
	DefaultInterpreter = "python"

	// waitDelay bounds how long output pipes are drained after a kill
	waitDelay = 5 * time.Second

	unbufferedEnv = "PYTHONUNBUFFERED=1"
)

// Outcome labels a finished run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// Config describes how the analysis script is invoked.
type Config struct {
	Interpreter string
	Script      string
	Timeout     time.Duration
}

// Request holds the per-run arguments.
type Request struct {
	Classification  string
	Tilt            string
	Backup          string
	UseCutout       bool
	DetectionMethod int
}

// Observer is notified once per finished run.
type Observer func(outcome Outcome, elapsed time.Duration)

// Runner executes the analysis script. It is safe for concurrent use; each
// Run starts its own process.
type Runner struct {
	interpreter string
	script      string
	timeout     time.Duration
	log         logger.Logger
	observe     Observer
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger overrides the "pipeline" module logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithObserver registers a completion callback, typically metrics.
func WithObserver(fn Observer) Option {
	return func(r *Runner) { r.observe = fn }
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if strings.TrimSpace(cfg.Script) == "" {
		return nil, errors.Newf("analysis script path is required").
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	script, err := filepath.Abs(cfg.Script)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	r := &Runner{
		interpreter: cfg.Interpreter,
		script:      script,
		timeout:     cfg.Timeout,
	}
	if r.interpreter == "" {
		r.interpreter = DefaultInterpreter
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Global().Module("pipeline")
	}
	return r, nil
}

// Args returns the argv passed to the interpreter.
func (r *Runner) Args(req Request) []string {
	cutout := "n"
	if req.UseCutout {
		cutout = "y"
	}
	return []string{
		"-u",
		r.script,
		req.Classification,
		req.Tilt,
		req.Backup,
		cutout,
		strconv.Itoa(req.DetectionMethod),
	}
}

// Run executes the script and returns its merged stdout and stderr. A
// non-zero exit, empty output, timeout or cancellation is an error that
// carries whatever output was produced under the "output" context key.
func (r *Runner) Run(ctx context.Context, req Request) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.interpreter, r.Args(req)...)
	cmd.Dir = filepath.Dir(r.script)
	cmd.Env = append(os.Environ(), unbufferedEnv)

	// One writer for both streams gives a single merged pipe
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	setupProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay

	log := r.log.WithContext(ctx)
	log.Info("starting local analysis",
		logger.String("interpreter", r.interpreter),
		logger.String("script", filepath.Base(r.script)),
		logger.Int("detection_method", req.DetectionMethod),
		logger.Bool("use_cutout", req.UseCutout))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	text := output.String()

	outcome, runErr := r.classify(ctx, runCtx, err, text, elapsed)
	if r.observe != nil {
		r.observe(outcome, elapsed)
	}

	if runErr != nil {
		log.Warn("local analysis failed",
			logger.String("outcome", string(outcome)),
			logger.Duration("elapsed", elapsed),
			logger.Error(runErr))
		return text, runErr
	}

	log.Info("local analysis completed",
		logger.Duration("elapsed", elapsed),
		logger.Int("output_bytes", len(text)))
	return text, nil
}

func (r *Runner) classify(parent, runCtx context.Context, err error, output string, elapsed time.Duration) (Outcome, error) {
	switch {
	case parent.Err() != nil:
		return OutcomeCancelled, errors.New(fmt.Errorf("local analysis cancelled: %w", parent.Err())).
			Component("pipeline").
			Category(errors.CategoryCancellation).
			Context("output", output).
			Timing("local_analysis", elapsed).
			Build()

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return OutcomeTimeout, errors.New(fmt.Errorf("local analysis exceeded %s: %w", r.timeout, context.DeadlineExceeded)).
			Component("pipeline").
			Category(errors.CategoryTimeout).
			Context("output", output).
			Timing("local_analysis", elapsed).
			Build()

	case err != nil:
		b := errors.New(fmt.Errorf("local analysis failed: %w", err)).
			Component("pipeline").
			Category(errors.CategoryCommandExecution).
			Context("output", output).
			Timing("local_analysis", elapsed)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			b = b.Context("exit_code", exitErr.ExitCode())
		}
		return OutcomeFailure, b.Build()

	case strings.TrimSpace(output) == "":
		return OutcomeFailure, errors.Newf("local analysis produced no output").
			Component("pipeline").
			Category(errors.CategoryCommandExecution).
			Context("output", output).
			Context("exit_code", 0).
			Build()
	}
	return OutcomeSuccess, nil
}
