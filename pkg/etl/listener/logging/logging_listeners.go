// Package logging provides ready-made observability callbacks: job
// lifecycle callbacks for the orchestrator and run hooks for pipelines.
// All of them only log; they never influence a verdict.
package logging

import (
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	orchestrator "github.com/driftworks/cascade/pkg/etl/engine/orchestrator"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// --- Job lifecycle callbacks ---

// JobStartCallback logs a job moving to RUNNING.
func JobStartCallback() orchestrator.Callback {
	return func(execution *model.JobExecution) {
		logger.Infof("JobListener: started - JobID: %s, ExecutionID: %s", execution.JobID, execution.ID)
	}
}

// JobCompleteCallback logs a successful job with its run metrics.
func JobCompleteCallback() orchestrator.Callback {
	return func(execution *model.JobExecution) {
		if execution.Context != nil {
			m := execution.Context.Metrics
			logger.Infof("JobListener: completed - JobID: %s, Duration: %.2fs, Loaded: %d, Throughput: %.2f rec/s",
				execution.JobID, execution.Duration().Seconds(), m.RecordsLoaded, m.Throughput())
			return
		}
		logger.Infof("JobListener: completed - JobID: %s, Duration: %.2fs", execution.JobID, execution.Duration().Seconds())
	}
}

// JobFailCallback logs a failed or cancelled job with its error.
func JobFailCallback() orchestrator.FailCallback {
	return func(execution *model.JobExecution, err error) {
		logger.Errorf("JobListener: failed - JobID: %s, State: %s, Error: %v", execution.JobID, execution.State, err)
	}
}

// --- Pipeline run hooks ---

// PreRunHook logs a pipeline run starting.
func PreRunHook() pipeline.Hook {
	return func(ec *model.ExecutionContext) {
		logger.Infof("PipelineListener: before run - Job: %s, RunID: %s, Params: %+v", ec.JobName, ec.JobID, ec.Parameters)
	}
}

// PostRunHook logs a pipeline run finishing, with error and warning
// counts.
func PostRunHook() pipeline.Hook {
	return func(ec *model.ExecutionContext) {
		logger.Infof("PipelineListener: after run - Job: %s, Status: %s, Errors: %d, Warnings: %d",
			ec.JobName, ec.Status, len(ec.Errors), len(ec.Warnings))
	}
}

// RunErrorHandler logs the error that failed a pipeline run.
func RunErrorHandler() pipeline.ErrorHandler {
	return func(ec *model.ExecutionContext, err error) {
		logger.Errorf("PipelineListener: run failed - Job: %s, Error: %v", ec.JobName, err)
	}
}
