package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	retry "github.com/driftworks/cascade/pkg/etl/engine/retry"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

func TestFixedIntervalPolicy_ShouldRetry(t *testing.T) {
	p := retry.NewFixedIntervalPolicy(3, time.Second)

	assert.True(t, p.ShouldRetry(errors.New("transient")))
	assert.True(t, p.ShouldRetry(exception.Newf("extract", "connection reset")))
	assert.False(t, p.ShouldRetry(exception.New("validate", "bad record", nil, false)))
	assert.False(t, p.ShouldRetry(nil))
}

func TestFixedIntervalPolicy_BackoffIsConstant(t *testing.T) {
	p := retry.NewFixedIntervalPolicy(5, 250*time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, p.BackoffInterval(1))
	assert.Equal(t, 250*time.Millisecond, p.BackoffInterval(5))
	assert.Equal(t, 5, p.MaxRetries())
}
