package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.uber.org/fx"

	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// Package config provides utilities for loading and managing application configuration
// from various sources, including YAML files and environment variables.

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from an embedded YAML document and
// environment variables. It is intended to be called once during startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	// 1. Defaults come from NewConfig().

	// 2. Load the embedded YAML into a temporary Config so values parse
	// into their proper types.
	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.New(moduleName, "failed to unmarshal embedded config", err, false)
	}

	// 3. Merge YAML configuration over the defaults.
	mergeConfig(cfg, &yamlConfig)

	// 4. Override scalar settings with environment variables.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.New(moduleName, "failed to load config from environment variables", err, false)
	}

	if err := validateJobs(cfg); err != nil {
		return nil, exception.New(moduleName, "invalid job configuration", err, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the configuration by loading defaults, merging from
// embedded YAML, and overriding with environment variables, then applies
// the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Cascade.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Cascade.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from an embedded YAML document and
// environment variables, outside the Fx lifecycle.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// validateJobs checks that job declarations are unique and reference
// declared jobs in their dependency lists.
func validateJobs(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Cascade.Jobs))
	for _, job := range cfg.Cascade.Jobs {
		if job.ID == "" {
			return fmt.Errorf("job with empty id")
		}
		if seen[job.ID] {
			return fmt.Errorf("duplicate job id: '%s'", job.ID)
		}
		seen[job.ID] = true
	}
	for _, job := range cfg.Cascade.Jobs {
		for _, dep := range job.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("job '%s' depends on undeclared job '%s'", job.ID, dep)
			}
		}
	}
	return nil
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig
// if they are not zero/empty values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeCascadeConfig(&destConfig.Cascade, &sourceConfig.Cascade)
}

// mergeCascadeConfig merges source into dest.
func mergeCascadeConfig(dest, source *CascadeConfig) {
	if source.Orchestrator.Name != "" {
		dest.Orchestrator.Name = source.Orchestrator.Name
	}
	if source.Orchestrator.MaxParallelJobs != 0 {
		dest.Orchestrator.MaxParallelJobs = source.Orchestrator.MaxParallelJobs
	}
	if source.Orchestrator.StateFile != "" {
		dest.Orchestrator.StateFile = source.Orchestrator.StateFile
	}
	if source.Orchestrator.DatabaseFile != "" {
		dest.Orchestrator.DatabaseFile = source.Orchestrator.DatabaseFile
	}
	if source.Orchestrator.HistoryLimit != 0 {
		dest.Orchestrator.HistoryLimit = source.Orchestrator.HistoryLimit
	}

	if source.Retry.MaxAttempts != 0 {
		dest.Retry.MaxAttempts = source.Retry.MaxAttempts
	}
	if source.Retry.IntervalMs != 0 {
		dest.Retry.IntervalMs = source.Retry.IntervalMs
	}

	if source.System.Timezone != "" {
		dest.System.Timezone = source.System.Timezone
	}
	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}

	// Job lists replace wholesale; merging per-job would be ambiguous.
	if source.Jobs != nil {
		dest.Jobs = source.Jobs
	}
}

// loadStructFromEnv recursively loads configuration values into a struct
// from environment variables, using the "yaml" tag to derive the variable
// name (e.g., CASCADE_ORCHESTRATOR_STATE_FILE). Slices and maps are left
// to YAML.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
