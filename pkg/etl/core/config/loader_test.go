package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/driftworks/cascade/pkg/etl/core/config"
)

func TestLoadConfig_DefaultsWhenYAMLIsEmpty(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(""))
	require.NoError(t, err)

	assert.Equal(t, "cascade", cfg.Cascade.Orchestrator.Name)
	assert.Equal(t, 1, cfg.Cascade.Orchestrator.MaxParallelJobs)
	assert.Equal(t, "cascade_state.json", cfg.Cascade.Orchestrator.StateFile)
	assert.Equal(t, 100, cfg.Cascade.Orchestrator.HistoryLimit)
	assert.Equal(t, 3, cfg.Cascade.Retry.MaxAttempts)
	assert.Equal(t, 5000, cfg.Cascade.Retry.IntervalMs)
	assert.Equal(t, "UTC", cfg.Cascade.System.Timezone)
	assert.Equal(t, "INFO", cfg.Cascade.System.Logging.Level)
	assert.Empty(t, cfg.Cascade.Jobs)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	yamlConfig := []byte(`
cascade:
  orchestrator:
    name: nightly
    max_parallel_jobs: 4
    database_file: audit.db
  retry:
    max_attempts: 5
  jobs:
    - id: extract
      parameters:
        count: 50
    - id: load
      pipeline: load_pipeline
      dependencies: [extract]
      timeout_seconds: 30
      enabled: false
`)

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Cascade.Orchestrator.Name)
	assert.Equal(t, 4, cfg.Cascade.Orchestrator.MaxParallelJobs)
	assert.Equal(t, "audit.db", cfg.Cascade.Orchestrator.DatabaseFile)
	// Values absent from the YAML keep their defaults.
	assert.Equal(t, "cascade_state.json", cfg.Cascade.Orchestrator.StateFile)
	assert.Equal(t, 5, cfg.Cascade.Retry.MaxAttempts)
	assert.Equal(t, 5000, cfg.Cascade.Retry.IntervalMs)

	require.Len(t, cfg.Cascade.Jobs, 2)
	extract := cfg.Cascade.Jobs[0]
	assert.Equal(t, "extract", extract.ID)
	assert.True(t, extract.IsEnabled())
	assert.Equal(t, 50, extract.Parameters["count"])

	load := cfg.Cascade.Jobs[1]
	assert.Equal(t, "load_pipeline", load.Pipeline)
	assert.Equal(t, []string{"extract"}, load.Dependencies)
	assert.Equal(t, 30, load.TimeoutSeconds)
	assert.False(t, load.IsEnabled())
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CASCADE_ORCHESTRATOR_STATE_FILE", "/var/run/state.json")
	t.Setenv("CASCADE_ORCHESTRATOR_MAX_PARALLEL_JOBS", "8")
	t.Setenv("CASCADE_RETRY_INTERVAL_MS", "250")
	t.Setenv("CASCADE_SYSTEM_LOGGING_LEVEL", "DEBUG")

	yamlConfig := []byte(`
cascade:
  orchestrator:
    state_file: from_yaml.json
`)

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "/var/run/state.json", cfg.Cascade.Orchestrator.StateFile)
	assert.Equal(t, 8, cfg.Cascade.Orchestrator.MaxParallelJobs)
	assert.Equal(t, 250, cfg.Cascade.Retry.IntervalMs)
	assert.Equal(t, "DEBUG", cfg.Cascade.System.Logging.Level)
}

func TestLoadConfig_InvalidEnvValueFails(t *testing.T) {
	t.Setenv("CASCADE_RETRY_MAX_ATTEMPTS", "not-a-number")

	_, err := config.LoadConfig("", config.EmbeddedConfig(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASCADE_RETRY_MAX_ATTEMPTS")
}

func TestLoadConfig_MalformedYAMLFails(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("cascade: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal embedded config")
}

func TestLoadConfig_RejectsDuplicateJobIDs(t *testing.T) {
	yamlConfig := []byte(`
cascade:
  jobs:
    - id: extract
    - id: extract
`)

	_, err := config.LoadConfig("", config.EmbeddedConfig(yamlConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate job id: 'extract'")
}

func TestLoadConfig_RejectsUndeclaredDependency(t *testing.T) {
	yamlConfig := []byte(`
cascade:
  jobs:
    - id: load
      dependencies: [missing]
`)

	_, err := config.LoadConfig("", config.EmbeddedConfig(yamlConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends on undeclared job 'missing'")
}

func TestLoadConfig_RejectsEmptyJobID(t *testing.T) {
	yamlConfig := []byte(`
cascade:
  jobs:
    - pipeline: anonymous
`)

	_, err := config.LoadConfig("", config.EmbeddedConfig(yamlConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job with empty id")
}
