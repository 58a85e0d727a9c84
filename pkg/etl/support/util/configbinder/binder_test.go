package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configbinder "github.com/driftworks/cascade/pkg/etl/support/util/configbinder"
)

type sourceOptions struct {
	Count         int     `yaml:"count"`
	DuplicateRate float64 `yaml:"duplicate_rate"`
	Verbose       bool    `yaml:"verbose"`
	Label         string  `yaml:"label"`
}

func TestBindProperties_WeakTyping(t *testing.T) {
	opts := sourceOptions{Count: 10}

	err := configbinder.BindProperties(map[string]string{
		"count":          "42",
		"duplicate_rate": "0.25",
		"verbose":        "true",
		"label":          "nightly",
	}, &opts)

	require.NoError(t, err)
	assert.Equal(t, 42, opts.Count)
	assert.Equal(t, 0.25, opts.DuplicateRate)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "nightly", opts.Label)
}

func TestBindProperties_EmptyMapLeavesDefaults(t *testing.T) {
	opts := sourceOptions{Count: 10, Label: "default"}

	require.NoError(t, configbinder.BindProperties(nil, &opts))
	assert.Equal(t, 10, opts.Count)
	assert.Equal(t, "default", opts.Label)
}

func TestBindProperties_UnknownKeysAreIgnored(t *testing.T) {
	opts := sourceOptions{}

	err := configbinder.BindProperties(map[string]string{
		"count":     "7",
		"unrelated": "value",
	}, &opts)

	require.NoError(t, err)
	assert.Equal(t, 7, opts.Count)
}

func TestBindProperties_TypeMismatchFails(t *testing.T) {
	opts := sourceOptions{}

	err := configbinder.BindProperties(map[string]string{"count": "not-a-number"}, &opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sourceOptions")
}
