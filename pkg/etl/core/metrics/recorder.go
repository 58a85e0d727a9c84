// Package metrics defines the observability abstractions of the engine:
// a Recorder for numeric metrics and a Tracer for spans. Both have no-op
// fallbacks so the core never depends on a concrete backend.
package metrics

import (
	"context"
	"time"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
)

// Recorder records metrics for job and step execution. Implementations
// must be safe for concurrent use; jobs within a level run in parallel.
type Recorder interface {
	// RecordJobStart records the start of a job execution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the completion of a job execution, including
	// its final state and duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepDuration records one step execution with its outcome.
	RecordStepDuration(ctx context.Context, jobName, stepName, status string, d time.Duration)
	// RecordStepRetry records one retry attempt of a step.
	RecordStepRetry(ctx context.Context, jobName, stepName string)
	// RecordStepRollback records one rollback invocation of a step.
	RecordStepRollback(ctx context.Context, jobName, stepName string)
}

// Tracer creates spans around job and step execution for distributed
// tracing backends.
type Tracer interface {
	// StartJobSpan starts a span for a job execution. The returned
	// function ends the span and is intended for defer.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartRunSpan starts a span for a pipeline run.
	StartRunSpan(ctx context.Context, ec *model.ExecutionContext) (context.Context, func())
	// StartStepSpan starts a span for a single step execution.
	StartStepSpan(ctx context.Context, jobName, stepName string) (context.Context, func())
	// RecordError records an error on the current span.
	RecordError(ctx context.Context, stage string, err error)
}
