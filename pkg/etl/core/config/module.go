// Package config provides core configuration structures for the engine.
// This module defines Fx providers for configuration-related components.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
// This allows other Fx components to depend only on the logging configuration.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Cascade.System.Logging
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
)
