package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeline "github.com/driftworks/cascade/pkg/etl/core/pipeline"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

func intRecords(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestBatchProcessor_ProcessInBatches(t *testing.T) {
	bp := pipeline.NewBatchProcessor(4)

	var batchSizes []int
	var completions []int
	results, err := bp.Process(intRecords(10),
		func(batch []interface{}) ([]interface{}, error) {
			batchSizes = append(batchSizes, len(batch))
			return batch, nil
		},
		func(batchNum, totalProcessed int) {
			completions = append(completions, totalProcessed)
		})

	require.NoError(t, err)
	assert.Len(t, results, 10)
	assert.Equal(t, []int{4, 4, 2}, batchSizes)
	assert.Equal(t, []int{4, 8, 10}, completions)
}

func TestBatchProcessor_StopsAtFirstError(t *testing.T) {
	bp := pipeline.NewBatchProcessor(3)

	calls := 0
	results, err := bp.Process(intRecords(9),
		func(batch []interface{}) ([]interface{}, error) {
			calls++
			if calls == 2 {
				return nil, exception.Newf("batch", "batch %d failed", calls)
			}
			return batch, nil
		}, nil)

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, results, 3)
}

func TestBatchProcessor_SizeFloor(t *testing.T) {
	bp := pipeline.NewBatchProcessor(0)

	calls := 0
	_, err := bp.Process(intRecords(3),
		func(batch []interface{}) ([]interface{}, error) {
			calls++
			assert.Len(t, batch, 1)
			return batch, nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBatchProcessor_EmptyInput(t *testing.T) {
	bp := pipeline.NewBatchProcessor(5)
	results, err := bp.Process(nil, func(batch []interface{}) ([]interface{}, error) {
		t.Fatal("processor must not run on empty input")
		return nil, nil
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}
