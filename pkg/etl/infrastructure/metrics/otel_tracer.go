package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
)

const tracerName = "github.com/driftworks/cascade/pkg/etl"

// OpenTelemetryTracer is a metrics.Tracer backed by the OpenTelemetry
// trace API. Spans go to whatever tracer provider the application
// installed globally; without one they are no-ops.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer bound to the global provider.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: otel.Tracer(tracerName)}
}

// StartJobSpan starts a span for a job execution.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobID,
		trace.WithAttributes(
			attribute.String("etl.job_id", execution.JobID),
			attribute.String("etl.execution_id", execution.ID),
		))
	return ctx, func() {
		span.SetAttributes(attribute.String("etl.state", execution.State.String()))
		span.End()
	}
}

// StartRunSpan starts a span for a pipeline run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, ec *model.ExecutionContext) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "pipeline "+ec.JobName,
		trace.WithAttributes(
			attribute.String("etl.job_name", ec.JobName),
			attribute.String("etl.run_id", ec.JobID),
		))
	return ctx, func() {
		span.SetAttributes(attribute.String("etl.status", ec.Status.String()))
		span.End()
	}
}

// StartStepSpan starts a span for a single step execution.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, jobName, stepName string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+stepName,
		trace.WithAttributes(
			attribute.String("etl.job_name", jobName),
			attribute.String("etl.step_name", stepName),
		))
	return ctx, func() { span.End() }
}

// RecordError records an error on the span carried by the context.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, stage string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("etl.stage", stage)))
	span.SetStatus(codes.Error, err.Error())
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
