package main

import (
	"context"

	"go.uber.org/fx"

	pipelines "github.com/driftworks/cascade/example/etl-demo/internal/pipelines"
	warehouse "github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	config "github.com/driftworks/cascade/pkg/etl/core/config"
	orchestrator "github.com/driftworks/cascade/pkg/etl/engine/orchestrator"
	infraMetrics "github.com/driftworks/cascade/pkg/etl/infrastructure/metrics"
	state "github.com/driftworks/cascade/pkg/etl/infrastructure/state"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// GetApplicationOptions builds the uber-fx options for the demo
// application.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context))),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, infraMetrics.Module)
	options = append(options, state.Module)
	options = append(options, warehouse.Module)
	options = append(options, pipelines.Module)
	options = append(options, orchestrator.Module)
	options = append(options, fx.Invoke(runWorkflow))

	return options
}
