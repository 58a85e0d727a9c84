package orchestrator

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	config "github.com/driftworks/cascade/pkg/etl/core/config"
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

// PipelineGroup is the Fx value group applications contribute their
// pipelines to so declarative job entries can reference them by name.
const PipelineGroup = "pipelines"

// Params defines the dependencies for NewFromConfig.
type Params struct {
	fx.In
	Config    *config.Config
	Store     repository.StateStore `optional:"true"`
	Recorder  metrics.Recorder      `optional:"true"`
	Tracer    metrics.Tracer        `optional:"true"`
	Pipelines []*pipeline.Pipeline  `group:"pipelines"`
}

// NewFromConfig builds an orchestrator from the declarative job entries
// in the configuration, resolving each entry's pipeline by name from the
// contributed pipeline group.
func NewFromConfig(p Params) (*Orchestrator, error) {
	opts := []Option{
		WithMaxParallelJobs(p.Config.Cascade.Orchestrator.MaxParallelJobs),
		WithHistoryLimit(p.Config.Cascade.Orchestrator.HistoryLimit),
	}
	if p.Store != nil {
		opts = append(opts, WithStateStore(p.Store))
	}
	if p.Recorder != nil {
		opts = append(opts, WithRecorder(p.Recorder))
	}
	if p.Tracer != nil {
		opts = append(opts, WithTracer(p.Tracer))
	}
	o := New(p.Config.Cascade.Orchestrator.Name, opts...)

	byName := make(map[string]*pipeline.Pipeline, len(p.Pipelines))
	for _, pl := range p.Pipelines {
		byName[pl.Name()] = pl
	}

	for _, jobCfg := range p.Config.Cascade.Jobs {
		pipelineName := jobCfg.Pipeline
		if pipelineName == "" {
			pipelineName = jobCfg.ID
		}
		pl, ok := byName[pipelineName]
		if !ok {
			return nil, exception.New(moduleName,
				fmt.Sprintf("job '%s' references unknown pipeline '%s'", jobCfg.ID, pipelineName),
				nil, false)
		}

		params := model.Properties(jobCfg.Parameters)
		if len(jobCfg.Tags) > 0 {
			if params == nil {
				params = make(model.Properties)
			}
			params["tags"] = jobCfg.Tags
		}

		def := NewJobDefinition(jobCfg.ID, pl,
			WithDependencies(jobCfg.Dependencies...),
			WithParameters(params),
			WithRetries(jobCfg.Retries),
			WithTimeout(time.Duration(jobCfg.TimeoutSeconds)*time.Second),
			WithTags(jobCfg.Tags...),
		)
		def.Enabled = jobCfg.IsEnabled()
		o.RegisterJob(def)
	}
	return o, nil
}

// Module provides the configured orchestrator to Fx.
var Module = fx.Options(
	fx.Provide(NewFromConfig),
)
