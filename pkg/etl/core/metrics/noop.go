package metrics

import (
	"context"
	"time"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
)

// NoOpRecorder is a Recorder that does nothing. It is used when metrics
// are disabled and in tests.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a new NoOpRecorder.
func NewNoOpRecorder() Recorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}
func (r *NoOpRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution)   {}
func (r *NoOpRecorder) RecordStepDuration(ctx context.Context, jobName, stepName, status string, d time.Duration) {
}
func (r *NoOpRecorder) RecordStepRetry(ctx context.Context, jobName, stepName string)    {}
func (r *NoOpRecorder) RecordStepRollback(ctx context.Context, jobName, stepName string) {}

var _ Recorder = (*NoOpRecorder)(nil)

// NoOpTracer is a Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, ec *model.ExecutionContext) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, jobName, stepName string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, stage string, err error) {}

var _ Tracer = (*NoOpTracer)(nil)
