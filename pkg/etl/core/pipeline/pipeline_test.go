package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

// mockStep counts invocations and fails a configurable number of times
// before succeeding.
type mockStep struct {
	name         string
	kind         step.Kind
	failTimes    int
	failWith     error
	validateFail bool

	executions int
	rollbacks  int
	rolledBack *[]string
}

func newMockStep(name string, kind step.Kind) *mockStep {
	return &mockStep{name: name, kind: kind}
}

func (m *mockStep) Name() string    { return m.name }
func (m *mockStep) Kind() step.Kind { return m.kind }

func (m *mockStep) Execute(ctx context.Context, ec *model.ExecutionContext) error {
	m.executions++
	if m.executions <= m.failTimes {
		if m.failWith != nil {
			return m.failWith
		}
		return exception.Newf(m.name, "attempt %d failed", m.executions)
	}
	return nil
}

func (m *mockStep) Validate(ec *model.ExecutionContext) bool {
	return !m.validateFail
}

func (m *mockStep) Rollback(ec *model.ExecutionContext) {
	m.rollbacks++
	if m.rolledBack != nil {
		*m.rolledBack = append(*m.rolledBack, m.name)
	}
}

func newTestPipeline(name string, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{pipeline.WithRetryDelay(time.Millisecond)}
	return pipeline.New(name, append(base, opts...)...)
}

func TestPipeline_RunSuccess(t *testing.T) {
	s1 := newMockStep("extract", step.KindExtract)
	s2 := newMockStep("load", step.KindLoad)
	p := newTestPipeline("p").AddStep(s1).AddStep(s2)

	ec := p.Run(context.Background(), nil, model.Properties{"key": "value"})

	require.NotNil(t, ec)
	assert.Equal(t, model.StatusSuccess, ec.Status)
	assert.Equal(t, "p", ec.JobName)
	assert.Equal(t, "value", ec.Parameters["key"])
	assert.NotNil(t, ec.EndedAt)
	assert.Equal(t, 1, s1.executions)
	assert.Equal(t, 1, s2.executions)
	assert.Zero(t, s1.rollbacks)
	assert.Greater(t, ec.Metrics.TotalTime, time.Duration(0))
}

func TestPipeline_RetryBound_SucceedsAtLimit(t *testing.T) {
	// Fails exactly maxRetries times then succeeds: overall SUCCESS.
	s := newMockStep("flaky", step.KindTransform)
	s.failTimes = 3
	p := newTestPipeline("p", pipeline.WithMaxRetries(3)).AddStep(s)

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusSuccess, ec.Status)
	assert.Equal(t, 4, s.executions)
}

func TestPipeline_RetryBound_FailsPastLimit(t *testing.T) {
	// Fails maxRetries+1 times: retries exhausted, overall FAILED.
	s := newMockStep("flaky", step.KindTransform)
	s.failTimes = 4
	p := newTestPipeline("p", pipeline.WithMaxRetries(3)).AddStep(s)

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.Equal(t, 4, s.executions)
	require.NotNil(t, ec.LastError())
	assert.Equal(t, "pipeline", ec.LastError().Stage)
}

func TestPipeline_NonRetryableErrorFailsImmediately(t *testing.T) {
	s := newMockStep("fatal", step.KindLoad)
	s.failTimes = 1
	s.failWith = exception.New("fatal", "unrecoverable", nil, false)
	p := newTestPipeline("p", pipeline.WithMaxRetries(3)).AddStep(s)

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.Equal(t, 1, s.executions)
}

func TestPipeline_ValidationFailureFailsWithoutRetryOrExecute(t *testing.T) {
	s := newMockStep("guarded", step.KindTransform)
	s.validateFail = true
	p := newTestPipeline("p", pipeline.WithMaxRetries(3)).AddStep(s)

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.Zero(t, s.executions)
}

func TestPipeline_RollbackReverseOrder(t *testing.T) {
	// With [S1, S2, S3] and S3 failing irrecoverably, rollback runs on
	// S2 then S1; S3 itself is never rolled back.
	var order []string
	s1 := newMockStep("s1", step.KindExtract)
	s1.rolledBack = &order
	s2 := newMockStep("s2", step.KindTransform)
	s2.rolledBack = &order
	s3 := newMockStep("s3", step.KindLoad)
	s3.rolledBack = &order
	s3.failTimes = 100

	p := newTestPipeline("p", pipeline.WithMaxRetries(1)).AddStep(s1).AddStep(s2).AddStep(s3)
	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.Equal(t, []string{"s2", "s1"}, order)
	assert.Zero(t, s3.rollbacks)
}

func TestPipeline_ExtractTransformLoadScenario(t *testing.T) {
	extract := newMockStep("extract", step.KindExtract)
	transform := newMockStep("transform", step.KindTransform)
	load := newMockStep("load", step.KindLoad)
	load.failTimes = 100

	var order []string
	extract.rolledBack = &order
	transform.rolledBack = &order
	load.rolledBack = &order

	p := newTestPipeline("etl", pipeline.WithMaxRetries(2)).
		AddStep(extract).AddStep(transform).AddStep(load)
	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.Equal(t, []string{"transform", "extract"}, order)
	assert.Zero(t, load.rollbacks)
}

func TestPipeline_HookFailuresAreSwallowed(t *testing.T) {
	var preRan, postRan, handlerRan bool
	s := newMockStep("boom", step.KindCustom)
	s.failTimes = 100

	p := newTestPipeline("p", pipeline.WithMaxRetries(0)).
		AddStep(s).
		AddPreHook(func(ec *model.ExecutionContext) {
			preRan = true
			panic("pre hook exploded")
		}).
		AddPostHook(func(ec *model.ExecutionContext) {
			postRan = true
			panic("post hook exploded")
		}).
		AddErrorHandler(func(ec *model.ExecutionContext, err error) {
			handlerRan = true
			panic("handler exploded")
		})

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusFailed, ec.Status)
	assert.True(t, preRan)
	assert.True(t, postRan)
	assert.True(t, handlerRan)
}

func TestPipeline_HooksNeverChangeSuccessVerdict(t *testing.T) {
	p := newTestPipeline("p").
		AddStep(newMockStep("ok", step.KindCustom)).
		AddPreHook(func(ec *model.ExecutionContext) { panic("observability glue") })

	ec := p.Run(context.Background(), nil, nil)
	assert.Equal(t, model.StatusSuccess, ec.Status)
}

func TestPipeline_ErrorHandlerReceivesStepError(t *testing.T) {
	var seen error
	s := newMockStep("boom", step.KindLoad)
	s.failTimes = 100
	s.failWith = exception.New("boom", "disk full", nil, false)

	p := newTestPipeline("p").
		AddStep(s).
		AddErrorHandler(func(ec *model.ExecutionContext, err error) { seen = err })

	p.Run(context.Background(), nil, nil)

	require.NotNil(t, seen)
	assert.Contains(t, seen.Error(), "disk full")
}

func TestPipeline_CancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := step.NewCustom("canceller", func(ctx context.Context, ec *model.ExecutionContext) error {
		cancel()
		return nil
	})
	second := newMockStep("never", step.KindLoad)

	p := newTestPipeline("p").AddStep(first).AddStep(second)
	ec := p.Run(ctx, nil, nil)

	assert.Equal(t, model.StatusCancelled, ec.Status)
	assert.Zero(t, second.executions)
}

func TestPipeline_CancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newMockStep("flaky", step.KindTransform)
	s.failTimes = 100
	p := pipeline.New("p",
		pipeline.WithMaxRetries(5),
		pipeline.WithRetryDelay(time.Second),
	).AddStep(s)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	ec := p.Run(ctx, nil, nil)

	assert.Equal(t, model.StatusCancelled, ec.Status)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPipeline_ReusesSuppliedContext(t *testing.T) {
	ec := model.NewExecutionContext("caller-owned")
	p := newTestPipeline("p").AddStep(newMockStep("ok", step.KindCustom))

	got := p.Run(context.Background(), ec, nil)

	assert.Same(t, ec, got)
	assert.Equal(t, "caller-owned", got.JobName)
}

func TestPipeline_PhaseTimeAccumulation(t *testing.T) {
	slow := step.NewExtract("slow", func(ctx context.Context, ec *model.ExecutionContext) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	p := newTestPipeline("p").AddStep(slow)

	ec := p.Run(context.Background(), nil, nil)

	assert.Greater(t, ec.Metrics.ExtractionTime, time.Duration(0))
	assert.GreaterOrEqual(t, ec.Metrics.TotalTime, ec.Metrics.ExtractionTime)
}

func TestPipeline_RunErrorNeverEscapes(t *testing.T) {
	s := newMockStep("boom", step.KindLoad)
	s.failTimes = 100
	p := newTestPipeline("p").AddStep(s)

	assert.NotPanics(t, func() {
		ec := p.Run(context.Background(), nil, nil)
		assert.Equal(t, model.StatusFailed, ec.Status)
	})
}

func TestPipeline_MutatorsIgnoredWhileAnyRunInFlight(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	gate := step.NewCustom("gate", func(ctx context.Context, ec *model.ExecutionContext) error {
		started <- struct{}{}
		<-release
		return nil
	})
	p := newTestPipeline("p").AddStep(gate)

	done := make(chan *model.ExecutionContext, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- p.Run(context.Background(), nil, nil) }()
	}
	<-started
	<-started

	// Finish one run while the other is still inside the gate.
	release <- struct{}{}
	<-done

	p.AddStep(newMockStep("late", step.KindCustom))
	assert.Len(t, p.Steps(), 1, "mutators must stay disabled while any run is in flight")

	release <- struct{}{}
	<-done

	p.AddStep(newMockStep("after", step.KindCustom))
	assert.Len(t, p.Steps(), 2)
}

var errSentinel = errors.New("sentinel")

func TestPipeline_PlainErrorsAreRetryable(t *testing.T) {
	// Errors that are not PipelineError default to retryable.
	s := newMockStep("flaky", step.KindCustom)
	s.failTimes = 1
	s.failWith = errSentinel
	p := newTestPipeline("p", pipeline.WithMaxRetries(2)).AddStep(s)

	ec := p.Run(context.Background(), nil, nil)

	assert.Equal(t, model.StatusSuccess, ec.Status)
	assert.Equal(t, 2, s.executions)
}
