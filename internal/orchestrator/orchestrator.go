// Package orchestrator drives one diagnosis screen: it holds the three image
// slots and the submission state machine, runs each analysis on a worker
// goroutine and delivers the outcome back on the UI zone.
//
// Every exported method except Close is meant to be called from the UI zone,
// the goroutine that services the Dispatcher.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// ErrBusy is returned by Submit while a submission is in flight.
var ErrBusy = errors.NewStd("a diagnosis is already in progress")

// ErrNotSubmitting is returned by Cancel when nothing is in flight.
var ErrNotSubmitting = errors.NewStd("no diagnosis in progress")

// Observer is notified on the UI zone when a submission ends.
type Observer func(mode string, outcome Outcome, elapsed time.Duration)

// Orchestrator owns the state of one diagnosis screen.
type Orchestrator struct {
	analyzer Analyzer
	client   *vitalarbor.Client
	ui       Dispatcher
	fs       afero.Fs
	log      logger.Logger
	observe  Observer
	onPhase  func(Phase)

	phase atomic.Int32

	mu         sync.Mutex
	slots      [roleCount]string
	creds      vitalarbor.Credentials
	useCutout  bool
	method     int
	generation uint64
	cancel     context.CancelFunc
	current    *Handle
	started    time.Time

	workers sync.WaitGroup
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithFs replaces the filesystem used to check slot files.
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithClient enables the auxiliary sign-in and image flows.
func WithClient(c *vitalarbor.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithLogger overrides the "orchestrator" module logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithObserver registers a completion callback, typically metrics.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithPhaseListener registers a callback invoked on every phase change.
func WithPhaseListener(fn func(Phase)) Option {
	return func(o *Orchestrator) { o.onPhase = fn }
}

// New returns an idle Orchestrator. The analyzer fixes the backend shape for
// the orchestrator's lifetime.
func New(analyzer Analyzer, ui Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		ui:       ui,
		fs:       afero.NewOsFs(),
		method:   vitalarbor.MinDetectionMethod,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Global().Module("orchestrator")
	}
	if o.ui == nil {
		o.ui = Inline
	}
	return o
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	return Phase(o.phase.Load())
}

// Mode returns the analyzer's backend shape.
func (o *Orchestrator) Mode() string {
	return o.analyzer.Mode()
}

// Bind puts path in the slot for role, replacing any earlier file.
func (o *Orchestrator) Bind(role Role, path string) error {
	if !role.valid() {
		return errors.Newf("unknown image slot %d", int(role)).
			Component("orchestrator").
			Category(errors.CategoryValidation).
			Build()
	}
	o.mu.Lock()
	o.slots[role] = path
	o.mu.Unlock()
	return nil
}

// Slot returns the path bound to role, or "" when empty.
func (o *Orchestrator) Slot(role Role) string {
	if !role.valid() {
		return ""
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slots[role]
}

// SetCredentials sets the credentials sent with each submission.
func (o *Orchestrator) SetCredentials(creds vitalarbor.Credentials) {
	o.mu.Lock()
	o.creds = creds
	o.mu.Unlock()
}

// Credentials returns the current credentials.
func (o *Orchestrator) Credentials() vitalarbor.Credentials {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creds
}

// SetOptions sets the cutout flag and detection method for the next submission.
func (o *Orchestrator) SetOptions(useCutout bool, detectionMethod int) {
	o.mu.Lock()
	o.useCutout = useCutout
	o.method = detectionMethod
	o.mu.Unlock()
}

// Submit validates the request and starts the analysis on a worker. Failed
// preconditions return an error and start nothing. The returned handle
// resolves on the UI zone.
func (o *Orchestrator) Submit() (*Handle, error) {
	if o.Phase() != PhaseIdle {
		return nil, stateError(ErrBusy, o.Phase())
	}

	o.mu.Lock()
	req := vitalarbor.DiagnosisRequest{
		Credentials:     o.creds,
		Classification:  o.slots[RoleClassification],
		Tilt:            o.slots[RoleTilt],
		Backup:          o.slots[RoleBackup],
		UseCutout:       o.useCutout,
		DetectionMethod: o.method,
	}
	if err := o.checkPreconditions(req); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	if !o.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseSubmitting)) {
		o.mu.Unlock()
		return nil, stateError(ErrBusy, o.Phase())
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(logger.WithTraceID(context.Background(), id))
	o.generation++
	gen := o.generation
	o.cancel = cancel
	o.current = newHandle(id)
	o.started = time.Now()
	handle := o.current
	o.workers.Add(1)
	o.mu.Unlock()

	o.log.WithContext(ctx).Info("diagnosis submitted",
		logger.String("mode", o.analyzer.Mode()),
		logger.Int("detection_method", req.DetectionMethod),
		logger.Bool("use_cutout", req.UseCutout))
	o.notifyPhase(PhaseSubmitting)

	go func() {
		defer o.workers.Done()
		result, err := o.analyzer.Analyze(ctx, req)
		o.ui.Dispatch(func() {
			o.complete(gen, result, err)
		})
	}()

	return handle, nil
}

// Cancel aborts the in-flight submission. Its handle resolves at once with
// a cancellation error and any later result is discarded. The backend may
// keep working.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	if o.Phase() != PhaseSubmitting || o.current == nil {
		o.mu.Unlock()
		return stateError(ErrNotSubmitting, o.Phase())
	}

	o.cancel()
	o.generation++
	handle := o.current
	elapsed := time.Since(o.started)
	o.clearLocked()
	o.phase.Store(int32(PhaseIdle))
	o.mu.Unlock()

	err := errors.New(fmt.Errorf("diagnosis cancelled: %w", context.Canceled)).
		Component("orchestrator").
		Category(errors.CategoryCancellation).
		Context("operation", "diagnose").
		Build()

	o.log.Info("diagnosis cancelled",
		logger.String("trace_id", handle.ID()),
		logger.Duration("elapsed", elapsed))
	o.notifyPhase(PhaseIdle)
	o.report(OutcomeCancelled, elapsed)
	handle.resolve(diagnosis.Result{}, err)
	return nil
}

// Close cancels any in-flight submission and waits for its worker to return.
// It may be called from any goroutine.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.workers.Wait()
}

// complete runs on the UI zone with the worker's outcome.
func (o *Orchestrator) complete(gen uint64, result diagnosis.Result, err error) {
	o.mu.Lock()
	if gen != o.generation || o.current == nil {
		o.mu.Unlock()
		o.log.Debug("discarding stale diagnosis outcome")
		return
	}
	handle := o.current
	elapsed := time.Since(o.started)
	o.cancel()
	o.clearLocked()

	if err != nil {
		o.phase.Store(int32(PhaseIdle))
		o.mu.Unlock()

		o.log.Warn("diagnosis failed",
			logger.String("trace_id", handle.ID()),
			logger.String("category", string(errors.CategoryOf(err))),
			logger.Error(err))
		o.notifyPhase(PhaseIdle)
		o.report(outcomeOf(err), elapsed)
		handle.resolve(diagnosis.Result{}, err)
		return
	}

	o.phase.Store(int32(PhaseReporting))
	o.mu.Unlock()

	o.notifyPhase(PhaseReporting)
	handle.resolve(result, nil)
	o.log.Info("diagnosis delivered",
		logger.String("trace_id", handle.ID()),
		logger.String("risk_category", result.RiskCategory),
		logger.Int("fields_parsed", result.Parsed()),
		logger.Duration("elapsed", elapsed))
	o.report(OutcomeSuccess, elapsed)

	o.phase.Store(int32(PhaseIdle))
	o.notifyPhase(PhaseIdle)
}

func (o *Orchestrator) clearLocked() {
	o.cancel = nil
	o.current = nil
}

func (o *Orchestrator) checkPreconditions(req vitalarbor.DiagnosisRequest) error {
	if err := req.Credentials.Validate(); err != nil {
		return err
	}
	if err := vitalarbor.ValidateDetectionMethod(req.DetectionMethod); err != nil {
		return err
	}
	for _, role := range Roles {
		if err := o.checkSlot(role, o.slots[role]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) checkSlot(role Role, path string) error {
	fail := func(msg string) error {
		return errors.Newf("%s image: %s", role, msg).
			Component("orchestrator").
			Category(errors.CategoryValidation).
			Context("slot", role.String()).
			Build()
	}
	if path == "" {
		return fail("not selected")
	}
	info, err := o.fs.Stat(path)
	if err != nil {
		return fail("file not found")
	}
	if info.IsDir() {
		return fail("is a directory")
	}
	if info.Size() == 0 {
		return fail("file is empty")
	}
	return nil
}

func (o *Orchestrator) notifyPhase(p Phase) {
	if o.onPhase != nil {
		o.onPhase(p)
	}
}

func (o *Orchestrator) report(outcome Outcome, elapsed time.Duration) {
	if o.observe != nil {
		o.observe(o.analyzer.Mode(), outcome, elapsed)
	}
}

func outcomeOf(err error) Outcome {
	switch errors.CategoryOf(err) {
	case errors.CategoryTimeout:
		return OutcomeTimeout
	case errors.CategoryCancellation:
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}

func stateError(err error, phase Phase) error {
	return errors.New(err).
		Component("orchestrator").
		Category(errors.CategoryState).
		Context("phase", phase.String()).
		Build()
}
