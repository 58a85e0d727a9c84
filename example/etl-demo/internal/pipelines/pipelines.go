// Package pipelines assembles the demo's four pipelines and contributes
// them to the orchestrator's pipeline group: two ingestion pipelines
// (users, events), the merge pipeline, and the report publisher.
package pipelines

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/driftworks/cascade/example/etl-demo/internal/steps"
	"github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	config "github.com/driftworks/cascade/pkg/etl/core/config"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	logging "github.com/driftworks/cascade/pkg/etl/listener/logging"
)

// Params defines the dependencies for NewPipelines.
type Params struct {
	fx.In
	Config    *config.Config
	Warehouse *warehouse.Warehouse
	Recorder  metrics.Recorder `optional:"true"`
	Tracer    metrics.Tracer   `optional:"true"`
}

// Result contributes the assembled pipelines to the pipeline group.
type Result struct {
	fx.Out
	Pipelines []*pipeline.Pipeline `group:"pipelines,flatten"`
}

// NewPipelines builds the demo pipelines with retry defaults and
// observability taken from the configuration.
func NewPipelines(p Params) (Result, error) {
	common := []pipeline.Option{
		pipeline.WithMaxRetries(p.Config.Cascade.Retry.MaxAttempts),
		pipeline.WithRetryDelay(time.Duration(p.Config.Cascade.Retry.IntervalMs) * time.Millisecond),
	}
	if p.Recorder != nil {
		common = append(common, pipeline.WithRecorder(p.Recorder))
	}
	if p.Tracer != nil {
		common = append(common, pipeline.WithTracer(p.Tracer))
	}

	extractUsers, err := steps.NewExtractUsers(stepProperties(p.Config, "raw_users"))
	if err != nil {
		return Result{}, err
	}
	users := pipeline.New("raw_users",
		append(common, pipeline.WithDescription("Ingest synthetic users into the warehouse"))...).
		AddStep(extractUsers).
		AddStep(steps.NewCleanUsers()).
		AddStep(steps.NewLoadUsers(p.Warehouse))

	extractEvents, err := steps.NewExtractEvents(p.Warehouse, stepProperties(p.Config, "raw_events"))
	if err != nil {
		return Result{}, err
	}
	events := pipeline.New("raw_events",
		append(common, pipeline.WithDescription("Ingest synthetic events into the warehouse"))...).
		AddStep(extractEvents).
		AddStep(steps.NewCleanEvents()).
		AddStep(steps.NewLoadEvents(p.Warehouse))

	merge := pipeline.New("merge_activity",
		append(common, pipeline.WithDescription("Join events onto users into the activity table"))...).
		AddStep(steps.NewExtractActivitySources(p.Warehouse)).
		AddStep(steps.NewBuildActivity()).
		AddStep(steps.NewLoadActivity(p.Warehouse))

	publishReport, err := steps.NewPublishReport(p.Warehouse, stepProperties(p.Config, "publish_report"))
	if err != nil {
		return Result{}, err
	}
	report := pipeline.New("publish_report",
		append(common, pipeline.WithDescription("Summarize the activity table into a JSON report"))...).
		AddStep(publishReport)

	all := []*pipeline.Pipeline{users, events, merge, report}
	for _, pl := range all {
		pl.AddPreHook(logging.PreRunHook()).
			AddPostHook(logging.PostRunHook()).
			AddErrorHandler(logging.RunErrorHandler())
	}
	return Result{Pipelines: all}, nil
}

// stepProperties flattens a job's configured parameters into the string
// property map step option structs bind from.
func stepProperties(cfg *config.Config, jobID string) map[string]string {
	for _, job := range cfg.Cascade.Jobs {
		if job.ID != jobID {
			continue
		}
		props := make(map[string]string, len(job.Parameters))
		for k, v := range job.Parameters {
			props[k] = fmt.Sprintf("%v", v)
		}
		return props
	}
	return nil
}

// Module provides the demo pipelines to Fx.
var Module = fx.Options(
	fx.Provide(NewPipelines),
)
