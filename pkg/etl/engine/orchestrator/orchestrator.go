// Package orchestrator schedules registered jobs according to their
// declared dependency graph: it computes parallelizable dependency
// levels, runs jobs sequentially or with bounded parallelism, propagates
// skips past failed jobs, and tracks an append-only execution history.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

const moduleName = "orchestrator"

// DefaultHistoryLimit caps how many execution records a state snapshot
// carries.
const DefaultHistoryLimit = 100

// Callback observes a job execution at a lifecycle edge. Callbacks run
// synchronously on whichever goroutine completed the job and must not
// block indefinitely.
type Callback func(execution *model.JobExecution)

// FailCallback observes a failed job execution together with its error.
type FailCallback func(execution *model.JobExecution, err error)

// Orchestrator owns the job registry and the execution history. One
// mutex guards the registry, the history, and every derived snapshot
// together so a job commit can never race a dependency check.
type Orchestrator struct {
	name            string
	maxParallelJobs int
	historyLimit    int

	mu      sync.Mutex
	jobs    map[string]*JobDefinition
	jobIDs  []string
	history []*model.JobExecution

	store    repository.StateStore
	recorder metrics.Recorder
	tracer   metrics.Tracer

	onJobStart    Callback
	onJobComplete Callback
	onJobFail     FailCallback
}

// Option customizes an orchestrator at construction time.
type Option func(*Orchestrator)

// WithMaxParallelJobs bounds how many jobs of one level run concurrently.
func WithMaxParallelJobs(n int) Option {
	return func(o *Orchestrator) { o.maxParallelJobs = n }
}

// WithStateStore installs the store that receives a state snapshot after
// every job run. Save errors are logged and never fail a job.
func WithStateStore(store repository.StateStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithHistoryLimit caps the execution records carried by snapshots.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) { o.historyLimit = n }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithTracer installs a tracer.
func WithTracer(t metrics.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New creates an orchestrator with the given name.
func New(name string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		name:            name,
		maxParallelJobs: 1,
		historyLimit:    DefaultHistoryLimit,
		jobs:            make(map[string]*JobDefinition),
		recorder:        metrics.NewNoOpRecorder(),
		tracer:          metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxParallelJobs < 1 {
		o.maxParallelJobs = 1
	}
	if o.historyLimit < 1 {
		o.historyLimit = DefaultHistoryLimit
	}
	return o
}

// Name returns the orchestrator name.
func (o *Orchestrator) Name() string {
	return o.name
}

// RegisterJob adds a job definition to the registry. Re-registering an
// ID replaces the previous definition.
func (o *Orchestrator) RegisterJob(job *JobDefinition) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.jobs[job.ID]; !exists {
		o.jobIDs = append(o.jobIDs, job.ID)
	}
	o.jobs[job.ID] = job
	logger.Debugf("Orchestrator '%s': registered job '%s' (deps: %v)", o.name, job.ID, job.Dependencies)
	return o
}

// RegisterPipeline is a convenience that wraps a pipeline in a
// JobDefinition and registers it.
func (o *Orchestrator) RegisterPipeline(jobID string, p *pipeline.Pipeline, dependencies []string, opts ...JobOption) *Orchestrator {
	opts = append([]JobOption{WithDependencies(dependencies...)}, opts...)
	return o.RegisterJob(NewJobDefinition(jobID, p, opts...))
}

// OnJobStart sets the callback invoked when a job moves to RUNNING.
func (o *Orchestrator) OnJobStart(cb Callback) *Orchestrator {
	o.onJobStart = cb
	return o
}

// OnJobComplete sets the callback invoked when a job ends in SUCCESS.
func (o *Orchestrator) OnJobComplete(cb Callback) *Orchestrator {
	o.onJobComplete = cb
	return o
}

// OnJobFail sets the callback invoked when a job ends in FAILED or
// CANCELLED.
func (o *Orchestrator) OnJobFail(cb FailCallback) *Orchestrator {
	o.onJobFail = cb
	return o
}

// ExecutionOrder computes dependency levels: each level is a batch of
// job IDs whose dependencies are all placed in earlier levels. It fails
// when a cycle or a reference to an unregistered job leaves jobs
// unplaceable, naming the stuck set.
func (o *Orchestrator) ExecutionOrder() ([][]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.executionOrderLocked()
}

func (o *Orchestrator) executionOrderLocked() ([][]string, error) {
	placed := make(map[string]bool, len(o.jobs))
	remaining := make([]string, len(o.jobIDs))
	copy(remaining, o.jobIDs)

	var levels [][]string
	for len(remaining) > 0 {
		var level, stuck []string
		for _, id := range remaining {
			ready := true
			for _, dep := range o.jobs[id].Dependencies {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, id)
			} else {
				stuck = append(stuck, id)
			}
		}
		if len(level) == 0 {
			sort.Strings(stuck)
			return nil, exception.New(moduleName,
				fmt.Sprintf("circular or unresolvable dependencies among jobs: %s", strings.Join(stuck, ", ")),
				nil, false)
		}
		for _, id := range level {
			placed[id] = true
		}
		levels = append(levels, level)
		remaining = stuck
	}
	return levels, nil
}

// RunJob runs one registered job and returns its execution record. A
// disabled job yields a SKIPPED execution without constructing a
// context. Pipeline failures, panics, and timeouts become job failures,
// never errors; the error return covers only unknown job IDs.
func (o *Orchestrator) RunJob(ctx context.Context, jobID string, params model.Properties) (*model.JobExecution, error) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return nil, exception.New(moduleName, fmt.Sprintf("unknown job: '%s'", jobID), nil, false)
	}

	if !job.Enabled {
		logger.Infof("Orchestrator '%s': job '%s' is disabled, skipping.", o.name, jobID)
		execution := model.NewSkippedExecution(jobID, "job disabled")
		o.commitExecution(ctx, execution)
		return execution, nil
	}

	execution := model.NewJobExecution(jobID)
	execution.RetryCount = job.Retries
	execution.MarkAsRunning()

	jobCtx, finishSpan := o.tracer.StartJobSpan(ctx, execution)
	defer finishSpan()
	o.recorder.RecordJobStart(jobCtx, execution)
	o.invokeCallback(func() {
		if o.onJobStart != nil {
			o.onJobStart(execution)
		}
	}, "on_job_start")

	merged := make(model.Properties, len(job.Parameters)+len(params))
	for k, v := range job.Parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	ec := model.NewExecutionContext(jobID)
	execution.Context = ec

	runErr := o.runPipeline(jobCtx, job, ec, merged)

	switch {
	case runErr != nil:
		// Timeout or a panic escaping the pipeline itself.
		message := exception.ExtractMessage(runErr)
		execution.MarkAsFailed(message)
		o.tracer.RecordError(jobCtx, jobID, runErr)
		logger.Errorf("Orchestrator '%s': job '%s' failed: %s", o.name, jobID, message)
	case ec.Status == model.StatusSuccess:
		execution.MarkAsSuccess()
		logger.Infof("Orchestrator '%s': job '%s' succeeded.", o.name, jobID)
	case ec.Status == model.StatusCancelled:
		execution.MarkAsCancelled()
		if last := ec.LastError(); last != nil {
			execution.ErrorMessage = last.Message
		}
		logger.Warnf("Orchestrator '%s': job '%s' cancelled.", o.name, jobID)
	default:
		message := "pipeline failed"
		if last := ec.LastError(); last != nil {
			message = last.Message
		}
		execution.MarkAsFailed(message)
		logger.Errorf("Orchestrator '%s': job '%s' failed: %s", o.name, jobID, message)
	}

	o.recorder.RecordJobEnd(jobCtx, execution)

	if execution.State == model.JobStateSuccess {
		o.invokeCallback(func() {
			if o.onJobComplete != nil {
				o.onJobComplete(execution)
			}
		}, "on_job_complete")
	} else {
		failErr := runErr
		if failErr == nil {
			failErr = exception.New(jobID, execution.ErrorMessage, nil, false)
		}
		o.invokeCallback(func() {
			if o.onJobFail != nil {
				o.onJobFail(execution, failErr)
			}
		}, "on_job_fail")
	}

	o.commitExecution(ctx, execution)
	return execution, nil
}

// runPipeline runs the job's pipeline, enforcing the declared timeout by
// bounding the wait on the run. A timed-out run is abandoned best effort:
// the context is cancelled and the goroutine drains on its own.
func (o *Orchestrator) runPipeline(ctx context.Context, job *JobDefinition, ec *model.ExecutionContext, params model.Properties) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- exception.Newf(job.ID, "pipeline panicked: %v", r)
				return
			}
			done <- nil
		}()
		job.Pipeline.Run(runCtx, ec, params)
	}()

	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return exception.New(job.ID,
				fmt.Sprintf("job '%s' timed out after %s", job.ID, job.Timeout),
				runCtx.Err(), false)
		}
		return runCtx.Err()
	}
}

// RunAll runs every registered job in dependency order and returns the
// complete result map: one execution per job, be it success, failure, or
// skip. It errors only on an unresolvable dependency graph, before any
// job runs. Jobs whose dependencies failed (or were skipped because of a
// failure) are skipped in turn; a disabled job is skipped without
// blocking its dependents.
func (o *Orchestrator) RunAll(ctx context.Context, params model.Properties, parallel bool) (map[string]*model.JobExecution, error) {
	levels, err := o.ExecutionOrder()
	if err != nil {
		return nil, err
	}

	total := 0
	for _, level := range levels {
		total += len(level)
	}
	logger.Infof("Orchestrator '%s': running %d jobs across %d levels (parallel=%t)", o.name, total, len(levels), parallel)

	results := make(map[string]*model.JobExecution, total)
	blocked := make(map[string]bool)

	for i, level := range levels {
		runnable := make([]string, 0, len(level))
		for _, jobID := range level {
			if dep := o.blockedBy(jobID, blocked); dep != "" {
				execution := model.NewSkippedExecution(jobID, fmt.Sprintf("dependency failed: %s", dep))
				o.commitExecution(ctx, execution)
				results[jobID] = execution
				blocked[jobID] = true
				logger.Warnf("Orchestrator '%s': skipping job '%s' (dependency '%s' did not succeed)", o.name, jobID, dep)
				continue
			}
			runnable = append(runnable, jobID)
		}

		if parallel && len(runnable) > 1 {
			o.runLevelParallel(ctx, runnable, params, results)
		} else {
			for _, jobID := range runnable {
				execution, _ := o.RunJob(ctx, jobID, params)
				results[jobID] = execution
			}
		}

		for _, jobID := range runnable {
			switch results[jobID].State {
			case model.JobStateSuccess:
			case model.JobStateSkipped:
				// A runnable job only skips when disabled, and a disabled
				// job never blocks its dependents.
			default:
				blocked[jobID] = true
			}
		}
		logger.Debugf("Orchestrator '%s': level %d complete", o.name, i)
	}
	return results, nil
}

// runLevelParallel runs one level's jobs under a bounded worker pool.
// Workers hand results back over a channel so only the controlling
// goroutine touches the result map.
func (o *Orchestrator) runLevelParallel(ctx context.Context, runnable []string, params model.Properties, results map[string]*model.JobExecution) {
	type jobResult struct {
		jobID     string
		execution *model.JobExecution
	}

	sem := make(chan struct{}, o.maxParallelJobs)
	resultCh := make(chan jobResult, len(runnable))

	for _, jobID := range runnable {
		go func(jobID string) {
			sem <- struct{}{}
			defer func() { <-sem }()
			execution, _ := o.RunJob(ctx, jobID, params)
			resultCh <- jobResult{jobID: jobID, execution: execution}
		}(jobID)
	}

	for range runnable {
		r := <-resultCh
		results[r.jobID] = r.execution
	}
}

// blockedBy returns the first declared dependency of jobID that did not
// succeed, or "" when the job is runnable.
func (o *Orchestrator) blockedBy(jobID string, blocked map[string]bool) string {
	o.mu.Lock()
	job := o.jobs[jobID]
	o.mu.Unlock()
	for _, dep := range job.Dependencies {
		if blocked[dep] {
			return dep
		}
	}
	return ""
}

// JobStatus returns the most recent execution of the given job, or nil
// when it never ran.
func (o *Orchestrator) JobStatus(jobID string) *model.JobExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].JobID == jobID {
			return o.history[i]
		}
	}
	return nil
}

// History returns a copy of the execution history in completion order.
func (o *Orchestrator) History() []*model.JobExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*model.JobExecution, len(o.history))
	copy(out, o.history)
	return out
}

// Summary aggregates the execution history.
func (o *Orchestrator) Summary() model.ExecutionSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summaryLocked()
}

func (o *Orchestrator) summaryLocked() model.ExecutionSummary {
	summary := model.ExecutionSummary{TotalExecutions: len(o.history)}
	for _, execution := range o.history {
		switch execution.State {
		case model.JobStateSuccess:
			summary.SuccessCount++
		case model.JobStateFailed:
			summary.FailedCount++
		}
		summary.TotalDurationSeconds += execution.Duration().Seconds()
	}
	if summary.TotalExecutions > 0 {
		summary.SuccessRate = float64(summary.SuccessCount) / float64(summary.TotalExecutions)
		summary.AvgDurationSeconds = summary.TotalDurationSeconds / float64(summary.TotalExecutions)
	}
	return summary
}

// commitExecution appends the execution to history and persists a state
// snapshot. History append and snapshot construction happen under the
// one orchestrator mutex; the store write happens outside it.
func (o *Orchestrator) commitExecution(ctx context.Context, execution *model.JobExecution) {
	o.mu.Lock()
	o.history = append(o.history, execution)
	snapshot := o.snapshotLocked()
	o.mu.Unlock()

	if o.store == nil {
		return
	}
	if err := o.store.SaveState(ctx, snapshot); err != nil {
		logger.Warnf("Orchestrator '%s': failed to save state: %v", o.name, err)
	}
}

// snapshotLocked builds the state document from the registry and the
// last historyLimit executions. Callers must hold o.mu.
func (o *Orchestrator) snapshotLocked() *model.StateSnapshot {
	start := 0
	if len(o.history) > o.historyLimit {
		start = len(o.history) - o.historyLimit
	}
	recent := make([]model.ExecutionRecord, 0, len(o.history)-start)
	for _, execution := range o.history[start:] {
		recent = append(recent, execution.Record())
	}

	jobs := make([]string, len(o.jobIDs))
	copy(jobs, o.jobIDs)

	return &model.StateSnapshot{
		Name:             o.name,
		SavedAt:          time.Now().UTC(),
		Jobs:             jobs,
		RecentExecutions: recent,
		Summary:          o.summaryLocked(),
	}
}

// invokeCallback runs a lifecycle callback, logging and swallowing
// panics. Callbacks never affect a job's verdict.
func (o *Orchestrator) invokeCallback(fn func(), name string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("Orchestrator '%s': %s callback failed: %v", o.name, name, r)
		}
	}()
	fn()
}
