package orchestrator

import (
	"time"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// WorkflowBuilder assembles an orchestrator fluently. Each AddJob opens
// a job whose following DependsOn/WithParams/... calls configure it;
// Build registers the last open job and returns the orchestrator.
type WorkflowBuilder struct {
	orchestrator *Orchestrator
	current      *JobDefinition
}

// NewWorkflowBuilder creates a builder over a fresh orchestrator.
func NewWorkflowBuilder(name string, opts ...Option) *WorkflowBuilder {
	return &WorkflowBuilder{orchestrator: New(name, opts...)}
}

// AddJob opens a new job for the given pipeline, registering the
// previously open one.
func (b *WorkflowBuilder) AddJob(jobID string, p *pipeline.Pipeline, opts ...JobOption) *WorkflowBuilder {
	b.flush()
	b.current = NewJobDefinition(jobID, p, opts...)
	return b
}

// DependsOn declares dependencies of the open job.
func (b *WorkflowBuilder) DependsOn(jobIDs ...string) *WorkflowBuilder {
	if b.requireCurrent("DependsOn") {
		b.current.Dependencies = append(b.current.Dependencies, jobIDs...)
	}
	return b
}

// WithParams sets default parameters of the open job.
func (b *WorkflowBuilder) WithParams(params model.Properties) *WorkflowBuilder {
	if b.requireCurrent("WithParams") {
		b.current.Parameters = params
	}
	return b
}

// WithTimeout bounds one run of the open job.
func (b *WorkflowBuilder) WithTimeout(d time.Duration) *WorkflowBuilder {
	if b.requireCurrent("WithTimeout") {
		b.current.Timeout = d
	}
	return b
}

// Disabled marks the open job as disabled.
func (b *WorkflowBuilder) Disabled() *WorkflowBuilder {
	if b.requireCurrent("Disabled") {
		b.current.Enabled = false
	}
	return b
}

// OnStart sets the orchestrator's job-start callback.
func (b *WorkflowBuilder) OnStart(cb Callback) *WorkflowBuilder {
	b.orchestrator.OnJobStart(cb)
	return b
}

// OnComplete sets the orchestrator's job-complete callback.
func (b *WorkflowBuilder) OnComplete(cb Callback) *WorkflowBuilder {
	b.orchestrator.OnJobComplete(cb)
	return b
}

// OnFail sets the orchestrator's job-fail callback.
func (b *WorkflowBuilder) OnFail(cb FailCallback) *WorkflowBuilder {
	b.orchestrator.OnJobFail(cb)
	return b
}

// Build registers the last open job and returns the orchestrator.
func (b *WorkflowBuilder) Build() *Orchestrator {
	b.flush()
	return b.orchestrator
}

func (b *WorkflowBuilder) flush() {
	if b.current != nil {
		b.orchestrator.RegisterJob(b.current)
		b.current = nil
	}
}

func (b *WorkflowBuilder) requireCurrent(method string) bool {
	if b.current == nil {
		logger.Warnf("WorkflowBuilder: %s called before AddJob, ignoring.", method)
		return false
	}
	return true
}
