// Package metrics provides concrete observability backends: a Prometheus
// recorder and an OpenTelemetry tracer.
package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
)

// Module is an Fx module that provides PrometheusRecorder and
// OpenTelemetryTracer behind the core metrics interfaces.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(metrics.Recorder)),
	)),
	fx.Provide(fx.Annotate(
		NewOpenTelemetryTracer,
		fx.As(new(metrics.Tracer)),
	)),
)
