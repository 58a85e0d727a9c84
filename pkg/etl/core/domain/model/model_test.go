package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
)

func TestStatus_TransitionTo(t *testing.T) {
	ec := model.NewExecutionContext("test")
	assert.Equal(t, model.StatusPending, ec.Status)

	assert.NoError(t, ec.TransitionTo(model.StatusRunning))
	assert.Equal(t, model.StatusRunning, ec.Status)

	assert.NoError(t, ec.TransitionTo(model.StatusRetrying))
	assert.NoError(t, ec.TransitionTo(model.StatusRunning))
	assert.NoError(t, ec.TransitionTo(model.StatusSuccess))
}

func TestStatus_TerminalStatesNeverTransition(t *testing.T) {
	for _, terminal := range []model.Status{model.StatusSuccess, model.StatusFailed, model.StatusCancelled} {
		ec := model.NewExecutionContext("test")
		assert.NoError(t, ec.TransitionTo(model.StatusRunning))
		assert.NoError(t, ec.TransitionTo(terminal))
		assert.True(t, terminal.IsTerminal())

		for _, next := range []model.Status{model.StatusPending, model.StatusRunning, model.StatusSuccess, model.StatusFailed, model.StatusCancelled, model.StatusRetrying} {
			err := ec.TransitionTo(next)
			assert.Error(t, err, "terminal status %s must not transition to %s", terminal, next)
			assert.Equal(t, terminal, ec.Status)
		}
	}
}

func TestStatus_MarkAsFailedLeavesTerminalStateIntact(t *testing.T) {
	ec := model.NewExecutionContext("test")
	ec.MarkAsRunning()
	ec.MarkAsSuccess()

	// MarkAs* warns and leaves the status untouched on invalid transitions.
	ec.MarkAsFailed()
	assert.Equal(t, model.StatusSuccess, ec.Status)
}

func TestExecutionContext_AddErrorTruncatesRecordSnapshot(t *testing.T) {
	ec := model.NewExecutionContext("test")

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	ec.AddError(errors.New("boom"), "extract", string(long))

	assert.Len(t, ec.Errors, 1)
	rec := ec.Errors[0]
	assert.Equal(t, "extract", rec.Stage)
	assert.Equal(t, "boom", rec.Message)
	assert.Len(t, rec.Record, 500)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestExecutionContext_AddErrorTruncatesOnRuneBoundary(t *testing.T) {
	ec := model.NewExecutionContext("test")

	// 300 three-byte runes: the 500-byte limit falls inside a rune.
	ec.AddError(errors.New("boom"), "extract", strings.Repeat("界", 300))

	rec := ec.Errors[0]
	assert.True(t, utf8.ValidString(rec.Record))
	assert.LessOrEqual(t, len(rec.Record), 500)
	assert.Equal(t, 498, len(rec.Record))
}

func TestExecutionContext_LastError(t *testing.T) {
	ec := model.NewExecutionContext("test")
	assert.Nil(t, ec.LastError())

	ec.AddError(errors.New("first"), "extract", nil)
	ec.AddError(errors.New("second"), "load", nil)

	last := ec.LastError()
	assert.Equal(t, "second", last.Message)
	assert.Equal(t, "load", last.Stage)
}

func TestExecutionContext_MergeParameters(t *testing.T) {
	ec := model.NewExecutionContext("test")
	ec.Parameters["keep"] = 1
	ec.Parameters["override"] = "old"

	ec.MergeParameters(model.Properties{"override": "new", "added": true})

	assert.Equal(t, 1, ec.Parameters["keep"])
	assert.Equal(t, "new", ec.Parameters["override"])
	assert.Equal(t, true, ec.Parameters["added"])
}

func TestMetrics_Throughput(t *testing.T) {
	m := model.Metrics{}
	assert.Equal(t, 0.0, m.Throughput())

	m.RecordsLoaded = 100
	m.TotalTime = 4 * time.Second
	assert.InDelta(t, 25.0, m.Throughput(), 0.001)

	snapshot := m.Snapshot()
	assert.Equal(t, 100, snapshot["records_loaded"])
	assert.InDelta(t, 25.0, snapshot["throughput_records_per_second"].(float64), 0.001)
}

func TestJobExecution_Lifecycle(t *testing.T) {
	je := model.NewJobExecution("job-a")
	assert.Equal(t, model.JobStateQueued, je.State)
	assert.NotEmpty(t, je.ID)

	je.MarkAsRunning()
	assert.Equal(t, model.JobStateRunning, je.State)
	assert.NotNil(t, je.StartedAt)

	je.MarkAsSuccess()
	assert.Equal(t, model.JobStateSuccess, je.State)
	assert.NotNil(t, je.EndedAt)
	assert.True(t, je.State.IsFinished())
}

func TestJobExecution_FinishedStatesNeverTransition(t *testing.T) {
	je := model.NewJobExecution("job-a")
	je.MarkAsRunning()
	je.MarkAsFailed("boom")
	assert.Equal(t, model.JobStateFailed, je.State)
	assert.Equal(t, "boom", je.ErrorMessage)

	assert.Error(t, je.TransitionTo(model.JobStateRunning))
	assert.Error(t, je.TransitionTo(model.JobStateSuccess))
	assert.Equal(t, model.JobStateFailed, je.State)
}

func TestJobExecution_Record(t *testing.T) {
	je := model.NewJobExecution("job-a")
	je.MarkAsRunning()
	je.MarkAsFailed("timeout")

	rec := je.Record()
	assert.Equal(t, je.ID, rec.ExecutionID)
	assert.Equal(t, "job-a", rec.JobID)
	assert.Equal(t, "FAILED", rec.State)
	assert.NotNil(t, rec.StartedAt)
	assert.NotNil(t, rec.EndedAt)
	assert.NotNil(t, rec.DurationSeconds)
	assert.Equal(t, "timeout", rec.ErrorMessage)
}

func TestNewSkippedExecution(t *testing.T) {
	je := model.NewSkippedExecution("job-b", "dependency failed: job-a")
	assert.Equal(t, model.JobStateSkipped, je.State)
	assert.Equal(t, "dependency failed: job-a", je.ErrorMessage)
	assert.Nil(t, je.Context)
	assert.Equal(t, time.Duration(0), je.Duration())
}
