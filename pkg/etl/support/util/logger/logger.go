// Package logger provides the leveled logging facility used across the
// Cascade engine. It wraps the standard log package and filters output
// by a globally configured level.
package logger

import (
	"fmt"
	"log"
	"strings"
)

// LogLevel identifies a logging verbosity level.
type LogLevel int

const (
	// LevelDebug emits detailed diagnostic output.
	LevelDebug LogLevel = iota
	// LevelInfo emits general progress messages.
	LevelInfo
	// LevelWarn emits recoverable problems.
	LevelWarn
	// LevelError emits failures.
	LevelError
	// LevelFatal emits a failure and terminates the process.
	LevelFatal
)

// logLevel is the active global level. Messages below it are dropped.
var logLevel = LevelInfo

// SetLogLevel sets the global log level from its string name
// ("DEBUG", "INFO", "WARN", "ERROR", "FATAL", case-insensitive).
// Unknown values fall back to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = LevelDebug
	case "INFO":
		logLevel = LevelInfo
	case "WARN":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL":
		logLevel = LevelFatal
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
	}
}

// Debugf logs a DEBUG level message.
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof logs an INFO level message.
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf logs a WARN level message.
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf logs an ERROR level message.
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf logs a FATAL level message and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
