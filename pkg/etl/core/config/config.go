package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// RetryConfig holds the default retry behavior applied to pipelines that
// do not configure their own policy.
type RetryConfig struct {
	// MaxAttempts is the maximum number of retry attempts per step.
	MaxAttempts int `yaml:"max_attempts"`
	// IntervalMs is the fixed backoff interval between attempts in milliseconds.
	IntervalMs int `yaml:"interval_ms"`
}

// OrchestratorConfig holds orchestrator-level settings.
type OrchestratorConfig struct {
	// Name identifies the orchestrator in logs and state snapshots.
	Name string `yaml:"name"`
	// MaxParallelJobs bounds how many jobs of one dependency level run
	// concurrently. Zero or one means sequential execution.
	MaxParallelJobs int `yaml:"max_parallel_jobs"`
	// StateFile is the path of the JSON state snapshot document.
	StateFile string `yaml:"state_file"`
	// DatabaseFile is an optional SQLite path; when set, execution
	// records are mirrored into it.
	DatabaseFile string `yaml:"database_file"`
	// HistoryLimit caps how many execution records a snapshot carries.
	HistoryLimit int `yaml:"history_limit"`
}

// JobConfig declares one job of the workflow in configuration form.
type JobConfig struct {
	// ID is the unique job identifier.
	ID string `yaml:"id"`
	// Pipeline names the registered pipeline the job runs. Defaults to ID.
	Pipeline string `yaml:"pipeline"`
	// Dependencies lists job IDs that must succeed before this job runs.
	Dependencies []string `yaml:"dependencies"`
	// Enabled disables the job when false; disabled jobs are skipped.
	Enabled *bool `yaml:"enabled"`
	// Retries overrides the default retry count for this job's pipeline.
	Retries int `yaml:"retries"`
	// TimeoutSeconds aborts the job when it runs longer. Zero means no timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Tags are free-form labels carried into job parameters.
	Tags []string `yaml:"tags"`
	// Parameters are merged into the job's execution context.
	Parameters map[string]interface{} `yaml:"parameters"`
}

// IsEnabled reports whether the job should run. Jobs are enabled unless
// explicitly disabled.
func (j JobConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// CascadeConfig holds all configuration under the "cascade" top-level key.
type CascadeConfig struct {
	// Orchestrator contains orchestrator-level settings.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	// Retry is the default retry configuration for pipelines.
	Retry RetryConfig `yaml:"retry"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Jobs declares the workflow's jobs and their dependencies.
	Jobs []JobConfig `yaml:"jobs"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Cascade contains the top-level configuration for the engine.
	Cascade CascadeConfig `yaml:"cascade"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Cascade: CascadeConfig{
			Orchestrator: OrchestratorConfig{
				Name:            "cascade",
				MaxParallelJobs: 1,
				StateFile:       "cascade_state.json",
				HistoryLimit:    100,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				IntervalMs:  5000,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
		},
	}
}
