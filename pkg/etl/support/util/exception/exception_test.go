package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

func TestNew_CarriesStageAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := exception.New("extract", "source unreachable", cause, true)

	assert.Equal(t, "[extract] source unreachable: dial tcp: connection refused", err.Error())
	assert.True(t, err.Retryable())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.NotEmpty(t, err.StackTrace)
}

func TestNewf_ExtractsTrailingError(t *testing.T) {
	cause := errors.New("boom")
	err := exception.Newf("load", "insert of %d rows failed", 42, cause)

	assert.Equal(t, "insert of 42 rows failed", err.Message)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, err.Retryable())
}

func TestNewf_NoCause(t *testing.T) {
	err := exception.Newf("transform", "schema mismatch")

	assert.Nil(t, errors.Unwrap(err))
	assert.Equal(t, "[transform] schema mismatch", err.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, exception.IsRetryable(nil))
	assert.True(t, exception.IsRetryable(errors.New("plain")))
	assert.True(t, exception.IsRetryable(exception.Newf("s", "transient")))
	assert.False(t, exception.IsRetryable(exception.New("s", "fatal", nil, false)))

	// The flag survives wrapping.
	wrapped := fmt.Errorf("outer: %w", exception.New("s", "fatal", nil, false))
	assert.False(t, exception.IsRetryable(wrapped))
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractMessage(nil))
	assert.Equal(t, "plain failure", exception.ExtractMessage(errors.New("plain failure")))

	pe := exception.New("load", "insert failed", errors.New("disk full"), true)
	assert.Equal(t, "insert failed", exception.ExtractMessage(pe))

	wrapped := fmt.Errorf("outer: %w", pe)
	require.Equal(t, "insert failed", exception.ExtractMessage(wrapped))
}
