package metrics

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides no-op metrics components.
// Concrete backends (Prometheus, OpenTelemetry) are provided by the
// infrastructure layer and take precedence when wired.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewNoOpRecorder,
		fx.As(new(Recorder)),
	)),
	fx.Provide(fx.Annotate(
		NewNoOpTracer,
		fx.As(new(Tracer)),
	)),
)
