package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	config "github.com/driftworks/cascade/pkg/etl/core/config"
	orchestrator "github.com/driftworks/cascade/pkg/etl/engine/orchestrator"
	logging "github.com/driftworks/cascade/pkg/etl/listener/logging"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// embeddedConfig holds the application's YAML configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// runWorkflow starts the whole dependency graph once on application
// startup and shuts the process down when it completes.
func runWorkflow(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	o *orchestrator.Orchestrator,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in workflow execution: %v", r)
					}
					logger.Infof("Requesting application shutdown after workflow completion.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				o.OnJobStart(logging.JobStartCallback()).
					OnJobComplete(logging.JobCompleteCallback()).
					OnJobFail(logging.JobFailCallback())

				dag, err := o.RenderDAG()
				if err != nil {
					logger.Errorf("Failed to resolve workflow graph: %v", err)
					return
				}
				logger.Infof("Workflow graph:\n%s", dag)

				parallel := cfg.Cascade.Orchestrator.MaxParallelJobs > 1
				results, err := o.RunAll(appCtx, nil, parallel)
				if err != nil {
					logger.Errorf("Workflow failed to run: %v", err)
					return
				}

				for jobID, execution := range results {
					logger.Infof("Job '%s' finished: state=%s duration=%.2fs", jobID, execution.State, execution.Duration().Seconds())
				}
				summary := o.Summary()
				logger.Infof("Workflow summary: %d executions, %d succeeded, %d failed, success rate %.0f%%, total %.2fs",
					summary.TotalExecutions, summary.SuccessCount, summary.FailedCount,
					summary.SuccessRate*100, summary.TotalDurationSeconds)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the workflow...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig)...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
	os.Exit(0)
}
