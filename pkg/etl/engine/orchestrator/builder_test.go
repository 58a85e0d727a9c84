package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	orchestrator "github.com/driftworks/cascade/pkg/etl/engine/orchestrator"
)

func TestWorkflowBuilder_BuildsGraph(t *testing.T) {
	var completed []string

	o := orchestrator.NewWorkflowBuilder("built").
		AddJob("extract_a", okPipeline("extract_a")).
		AddJob("extract_b", okPipeline("extract_b")).
		AddJob("merge", okPipeline("merge")).
		DependsOn("extract_a", "extract_b").
		WithParams(model.Properties{"mode": "full"}).
		WithTimeout(time.Minute).
		AddJob("report", okPipeline("report")).
		DependsOn("merge").
		OnComplete(func(e *model.JobExecution) { completed = append(completed, e.JobID) }).
		Build()

	levels, err := o.ExecutionOrder()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.ElementsMatch(t, []string{"extract_a", "extract_b"}, levels[0])
	assert.Equal(t, []string{"merge"}, levels[1])
	assert.Equal(t, []string{"report"}, levels[2])

	results, err := o.RunAll(context.Background(), nil, false)
	require.NoError(t, err)
	for id, execution := range results {
		assert.Equal(t, model.JobStateSuccess, execution.State, "job %s", id)
	}
	assert.Len(t, completed, 4)
}

func TestWorkflowBuilder_DisabledJob(t *testing.T) {
	o := orchestrator.NewWorkflowBuilder("built").
		AddJob("on", okPipeline("on")).
		AddJob("off", okPipeline("off")).
		Disabled().
		Build()

	results, err := o.RunAll(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateSuccess, results["on"].State)
	assert.Equal(t, model.JobStateSkipped, results["off"].State)
	assert.Equal(t, "job disabled", results["off"].ErrorMessage)
}

func TestWorkflowBuilder_ConfigBeforeAddJobIsIgnored(t *testing.T) {
	o := orchestrator.NewWorkflowBuilder("built").
		DependsOn("ghost").
		AddJob("only", okPipeline("only")).
		Build()

	levels, err := o.ExecutionOrder()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []string{"only"}, levels[0])
}
