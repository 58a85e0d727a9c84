// Package pipeline implements the ordered, retryable, rollback-capable
// step sequence at the heart of the Cascade engine. A pipeline is built
// once and run many times; each run owns its ExecutionContext.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	retry "github.com/driftworks/cascade/pkg/etl/engine/retry"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

const (
	// DefaultMaxRetries is the per-step retry bound when none is configured.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed backoff between attempts when none is
	// configured.
	DefaultRetryDelay = 5 * time.Second
)

// Hook observes a run before or after the steps execute. Hook failures
// are logged and swallowed; a pipeline's verdict depends only on its steps.
type Hook func(ec *model.ExecutionContext)

// ErrorHandler observes a failed run before rollback. Handler failures
// are logged and swallowed.
type ErrorHandler func(ec *model.ExecutionContext, err error)

// Pipeline is an ordered sequence of steps with per-step retry and
// whole-pipeline rollback semantics. Step order is fixed once running
// starts; the builder mutators are no-ops on a running pipeline.
type Pipeline struct {
	name        string
	description string

	steps         []step.Step
	preHooks      []Hook
	postHooks     []Hook
	errorHandlers []ErrorHandler

	policy   retry.Policy
	recorder metrics.Recorder
	tracer   metrics.Tracer

	// running counts in-flight runs; the same pipeline may be run
	// concurrently by several jobs.
	running atomic.Int32
}

// Option customizes a pipeline at construction time.
type Option func(*options)

type options struct {
	description string
	maxRetries  int
	retryDelay  time.Duration
	policy      retry.Policy
	recorder    metrics.Recorder
	tracer      metrics.Tracer
}

// WithDescription sets the pipeline description.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithMaxRetries sets the per-step retry bound for the default policy.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithRetryDelay sets the fixed backoff for the default policy.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithRetryPolicy replaces the default fixed-interval policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithTracer installs a tracer.
func WithTracer(t metrics.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New creates a pipeline with the given name.
func New(name string, opts ...Option) *Pipeline {
	o := &options{
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.policy == nil {
		o.policy = retry.NewFixedIntervalPolicy(o.maxRetries, o.retryDelay)
	}
	if o.recorder == nil {
		o.recorder = metrics.NewNoOpRecorder()
	}
	if o.tracer == nil {
		o.tracer = metrics.NewNoOpTracer()
	}
	return &Pipeline{
		name:        name,
		description: o.description,
		policy:      o.policy,
		recorder:    o.recorder,
		tracer:      o.tracer,
	}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Description returns the pipeline description.
func (p *Pipeline) Description() string {
	return p.description
}

// Steps returns the registered steps in execution order.
func (p *Pipeline) Steps() []step.Step {
	return p.steps
}

// AddStep appends a step. No-op while the pipeline is running.
func (p *Pipeline) AddStep(s step.Step) *Pipeline {
	if p.running.Load() > 0 {
		logger.Warnf("Pipeline '%s': ignoring AddStep(%s) on a running pipeline.", p.name, s.Name())
		return p
	}
	p.steps = append(p.steps, s)
	return p
}

// AddPreHook appends a pre-execution hook. No-op while running.
func (p *Pipeline) AddPreHook(h Hook) *Pipeline {
	if p.running.Load() > 0 {
		logger.Warnf("Pipeline '%s': ignoring AddPreHook on a running pipeline.", p.name)
		return p
	}
	p.preHooks = append(p.preHooks, h)
	return p
}

// AddPostHook appends a post-execution hook. No-op while running.
func (p *Pipeline) AddPostHook(h Hook) *Pipeline {
	if p.running.Load() > 0 {
		logger.Warnf("Pipeline '%s': ignoring AddPostHook on a running pipeline.", p.name)
		return p
	}
	p.postHooks = append(p.postHooks, h)
	return p
}

// AddErrorHandler appends an error handler. No-op while running.
func (p *Pipeline) AddErrorHandler(h ErrorHandler) *Pipeline {
	if p.running.Load() > 0 {
		logger.Warnf("Pipeline '%s': ignoring AddErrorHandler on a running pipeline.", p.name)
		return p
	}
	p.errorHandlers = append(p.errorHandlers, h)
	return p
}

// Run executes the pipeline against the given context. A nil context
// gets a fresh one named after the pipeline. The returned context always
// carries a terminal status, end time, and accumulated total duration;
// step failures never escape as errors.
func (p *Pipeline) Run(ctx context.Context, ec *model.ExecutionContext, params model.Properties) *model.ExecutionContext {
	if ec == nil {
		ec = model.NewExecutionContext(p.name)
	}
	p.running.Add(1)
	defer p.running.Add(-1)

	ec.MergeParameters(params)
	ec.MarkAsRunning()
	start := time.Now()

	runCtx, finishSpan := p.tracer.StartRunSpan(ctx, ec)
	defer finishSpan()

	logger.Infof("Starting pipeline: %s (job_id: %s)", p.name, ec.JobID)

	p.runHooks(ec, p.preHooks, "pre-hook")

	completed := make([]step.Step, 0, len(p.steps))
	runErr := p.executeSteps(runCtx, ec, &completed)

	switch {
	case runErr == nil:
		ec.MarkAsSuccess()
		logger.Infof("Pipeline %s completed successfully", p.name)
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		ec.AddError(runErr, "pipeline", nil)
		ec.MarkAsCancelled()
		logger.Warnf("Pipeline %s cancelled: %v", p.name, runErr)
	default:
		ec.AddError(runErr, "pipeline", nil)
		ec.MarkAsFailed()
		logger.Errorf("Pipeline %s failed: %v", p.name, runErr)
		p.tracer.RecordError(runCtx, "pipeline", runErr)

		p.runErrorHandlers(ec, runErr)
		p.rollbackCompleted(runCtx, ec, completed)
	}

	now := time.Now()
	ec.EndedAt = &now
	ec.Metrics.TotalTime += time.Since(start)

	p.runHooks(ec, p.postHooks, "post-hook")

	return ec
}

// executeSteps runs each step in registration order: validate first,
// then execute under the retry policy. The first unrecovered failure
// stops the walk; completed steps are collected for rollback.
func (p *Pipeline) executeSteps(ctx context.Context, ec *model.ExecutionContext, completed *[]step.Step) error {
	for _, s := range p.steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logger.Infof("Executing step: %s", s.Name())
		stepStart := time.Now()
		stepCtx, finishSpan := p.tracer.StartStepSpan(ctx, ec.JobName, s.Name())

		var stepErr error
		if !s.Validate(ec) {
			// Re-running a failed validation would repeat the same verdict,
			// so it fails immediately with no retry.
			stepErr = exception.New(s.Name(), fmt.Sprintf("step validation failed: %s", s.Name()), nil, false)
		} else {
			stepErr = p.executeWithRetry(stepCtx, ec, s)
		}
		finishSpan()

		elapsed := time.Since(stepStart)
		p.accumulatePhaseTime(ec, s.Kind(), elapsed)

		status := "success"
		if stepErr != nil {
			status = "failed"
		}
		p.recorder.RecordStepDuration(ctx, ec.JobName, s.Name(), status, elapsed)

		if stepErr != nil {
			p.tracer.RecordError(stepCtx, s.Name(), stepErr)
			return stepErr
		}
		*completed = append(*completed, s)
		logger.Infof("Step %s completed in %.2fs", s.Name(), elapsed.Seconds())
	}
	return nil
}

// executeWithRetry attempts one step under the retry policy, backing off
// between attempts with the context status set to RETRYING.
func (p *Pipeline) executeWithRetry(ctx context.Context, ec *model.ExecutionContext, s step.Step) error {
	retries := 0
	for {
		err := s.Execute(ctx, ec)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		retries++
		if retries > p.policy.MaxRetries() || !p.policy.ShouldRetry(err) {
			return err
		}

		logger.Warnf("Step %s failed, retry %d/%d: %v", s.Name(), retries, p.policy.MaxRetries(), err)
		ec.MarkAsRetrying()
		p.recorder.RecordStepRetry(ctx, ec.JobName, s.Name())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.policy.BackoffInterval(retries)):
		}
		ec.MarkAsRunning()
	}
}

// accumulatePhaseTime folds a step's elapsed time into the matching
// phase metric.
func (p *Pipeline) accumulatePhaseTime(ec *model.ExecutionContext, kind step.Kind, elapsed time.Duration) {
	switch kind {
	case step.KindExtract:
		ec.Metrics.ExtractionTime += elapsed
	case step.KindTransform:
		ec.Metrics.TransformationTime += elapsed
	case step.KindLoad:
		ec.Metrics.LoadingTime += elapsed
	}
}

// runHooks invokes hooks in order, logging and swallowing panics.
func (p *Pipeline) runHooks(ec *model.ExecutionContext, hooks []Hook, kind string) {
	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warnf("Pipeline '%s': %s failed: %v", p.name, kind, r)
				}
			}()
			h(ec)
		}()
	}
}

// runErrorHandlers invokes registered error handlers, logging and
// swallowing panics.
func (p *Pipeline) runErrorHandlers(ec *model.ExecutionContext, runErr error) {
	for _, h := range p.errorHandlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warnf("Pipeline '%s': error handler failed: %v", p.name, r)
				}
			}()
			h(ec, runErr)
		}()
	}
}

// rollbackCompleted rolls back completed steps in reverse order.
// Rollback is best effort: panics are collected and logged, never
// escalated.
func (p *Pipeline) rollbackCompleted(ctx context.Context, ec *model.ExecutionContext, completed []step.Step) {
	var errs *multierror.Error
	for i := len(completed) - 1; i >= 0; i-- {
		s := completed[i]
		logger.Infof("Rolling back step: %s", s.Name())
		if err := p.rollbackStep(ec, s); err != nil {
			errs = multierror.Append(errs, err)
		}
		p.recorder.RecordStepRollback(ctx, ec.JobName, s.Name())
	}
	if errs.ErrorOrNil() != nil {
		logger.Warnf("Pipeline '%s': rollback finished with errors: %v", p.name, errs)
	}
}

func (p *Pipeline) rollbackStep(ec *model.ExecutionContext, s step.Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = exception.Newf(s.Name(), "rollback panicked: %v", r)
		}
	}()
	s.Rollback(ec)
	return nil
}
