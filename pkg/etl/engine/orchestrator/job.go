package orchestrator

import (
	"time"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
)

// JobDefinition binds a pipeline to a schedulable job: its dependencies,
// default parameters, enablement, and timeout. Definitions are read-only
// configuration once registered and may be dispatched concurrently.
type JobDefinition struct {
	// ID is the unique key in the orchestrator's registry.
	ID string
	// Pipeline is the pipeline this job runs.
	Pipeline *pipeline.Pipeline
	// Dependencies lists job IDs that must succeed before this job runs.
	// They need not exist at registration time, but must all be
	// registered by the time execution order is computed.
	Dependencies []string
	// Parameters are default parameters merged into every run.
	Parameters model.Properties
	// Retries carries the declared per-step retry count; it informs
	// pipeline construction and is recorded for audit.
	Retries int
	// Timeout bounds one run of the job. Zero means no timeout.
	Timeout time.Duration
	// Enabled gates the job; a disabled job is skipped without running.
	Enabled bool
	// Tags are free-form operator labels.
	Tags []string
}

// JobOption customizes a JobDefinition at construction time.
type JobOption func(*JobDefinition)

// WithDependencies declares the job IDs this job depends on.
func WithDependencies(ids ...string) JobOption {
	return func(j *JobDefinition) { j.Dependencies = ids }
}

// WithParameters sets default parameters merged into every run.
func WithParameters(params model.Properties) JobOption {
	return func(j *JobDefinition) { j.Parameters = params }
}

// WithRetries records the declared per-step retry count.
func WithRetries(n int) JobOption {
	return func(j *JobDefinition) { j.Retries = n }
}

// WithTimeout bounds one run of the job.
func WithTimeout(d time.Duration) JobOption {
	return func(j *JobDefinition) { j.Timeout = d }
}

// WithTags attaches operator labels to the job.
func WithTags(tags ...string) JobOption {
	return func(j *JobDefinition) { j.Tags = tags }
}

// Disabled marks the job as disabled.
func Disabled() JobOption {
	return func(j *JobDefinition) { j.Enabled = false }
}

// NewJobDefinition creates an enabled JobDefinition for the given
// pipeline.
func NewJobDefinition(id string, p *pipeline.Pipeline, opts ...JobOption) *JobDefinition {
	j := &JobDefinition{
		ID:       id,
		Pipeline: p,
		Enabled:  true,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}
