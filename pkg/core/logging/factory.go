// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating loggers from the runtime config
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/pkg/core/config"
)

var (
	// log files opened by NewLogger, closed by CloseFiles
	openFiles   []*os.File
	openFilesMu sync.Mutex
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name
	ServiceName string

	// Log level (trace, debug, info, warn, error)
	Level string

	// Output format: json, text, console or logfmt (default: console)
	Format string

	// File receives a copy of every entry when set
	File string

	// Output replaces stderr as the primary writer
	Output io.Writer

	// Additional outputs (besides the primary writer and File)
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "warn",
		Format:      "console",
	}
}

// FromConfig builds a LoggerConfig from the [log] section. Verbose forces
// debug level.
func FromConfig(serviceName string, cfg config.LogConfig, verbose bool) LoggerConfig {
	lc := DefaultLoggerConfig(serviceName)
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.File = cfg.File
	if verbose {
		lc.Level = "debug"
	}
	return lc
}

// NewLogger creates a Foundation logger
func NewLogger(cfg LoggerConfig) (*mdwlog.Logger, error) {
	level := parseLevel(cfg.Level)

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}

	writers := []io.Writer{output}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	writers = append(writers, cfg.AdditionalOutputs...)
	if len(writers) > 1 {
		output = io.MultiWriter(writers...)
	}

	format, err := mdwlog.ParseFormat(cfg.Format)
	if err != nil && cfg.Format != "" {
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	if cfg.Format == "" {
		format = mdwlog.FormatConsole
	}

	logger := mdwlog.NewWithConfig(mdwlog.Config{
		Level:  level,
		Format: format,
		Output: output,
		Name:   cfg.ServiceName,
	})
	return logger, nil
}

// NewCLILogger creates the logger of a command line tool and installs it as
// the default logger
func NewCLILogger(serviceName string, cfg config.LogConfig, verbose bool) (*mdwlog.Logger, error) {
	logger, err := NewLogger(FromConfig(serviceName, cfg, verbose))
	if err != nil {
		return nil, err
	}
	mdwlog.SetDefault(logger)
	return logger, nil
}

// CloseFiles closes every log file opened by NewLogger
func CloseFiles() error {
	openFilesMu.Lock()
	defer openFilesMu.Unlock()

	var firstErr error
	for _, f := range openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	openFiles = nil
	return firstErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	openFilesMu.Lock()
	openFiles = append(openFiles, f)
	openFilesMu.Unlock()
	return f, nil
}

// parseLevel converts a string level to mdwlog.Level
func parseLevel(level string) mdwlog.Level {
	switch level {
	case "trace":
		return mdwlog.LevelTrace
	case "debug":
		return mdwlog.LevelDebug
	case "info":
		return mdwlog.LevelInfo
	case "warn", "warning":
		return mdwlog.LevelWarn
	case "error":
		return mdwlog.LevelError
	case "fatal":
		return mdwlog.LevelFatal
	default:
		return mdwlog.LevelWarn
	}
}
