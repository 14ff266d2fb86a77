// Package logger provides centralized logging for abacus-service using arbor.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"

	"github.com/ternarybob/abacus/internal/config"
)

// Mode selects how the process talks to its client, which decides where
// logs may go.
type Mode int

const (
	// ModeService serves HTTP; console and file output follow config.
	ModeService Mode = iota
	// ModeStdio serves MCP over stdin/stdout. Stdout carries the protocol,
	// so logs go to a separate file only.
	ModeStdio
)

// stdioLogName is the ModeStdio log file. It never shares the service's
// rotating log.
const stdioLogName = "abacus-mcp.log"

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance.
// If SetupLogger() hasn't been called yet, returns a fallback console logger.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(createWriterConfig(nil, models.LogWriterTypeConsole, ""))
	}
	return globalLogger
}

// ForSession returns the global logger tagged with a calculator session.
func ForSession(id string) arbor.ILogger {
	return GetLogger().WithContext("session", id)
}

// InitLogger stores the provided logger as the global singleton instance.
func InitLogger(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// outputs resolves which writers to attach. Stdio mode never writes to the
// console.
func outputs(cfg *config.Config, mode Mode) (file, console bool) {
	if mode == ModeStdio {
		return true, false
	}
	for _, output := range cfg.Logging.Output {
		switch output {
		case "file":
			file = true
		case "stdout", "console":
			console = true
		case "both":
			file, console = true, true
		}
	}
	return file, console
}

// logPath returns the log file for mode.
func logPath(cfg *config.Config, mode Mode) string {
	if mode == ModeStdio {
		return filepath.Join(filepath.Dir(cfg.LogPath()), stdioLogName)
	}
	return cfg.LogPath()
}

// SetupLogger configures and initializes the global logger for mode.
func SetupLogger(cfg *config.Config, mode Mode) arbor.ILogger {
	logger := arbor.NewLogger()
	file, console := outputs(cfg, mode)

	if file {
		path := logPath(cfg, mode)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			if mode == ModeStdio {
				// no writers: stdout belongs to the protocol
				InitLogger(logger)
				return logger
			}
			logger.WithConsoleWriter(createWriterConfig(cfg, models.LogWriterTypeConsole, "")).
				Warn().Err(err).Str("logs_dir", filepath.Dir(path)).Msg("Failed to create logs directory")
			file = false
		} else {
			logger = logger.WithFileWriter(createWriterConfig(cfg, models.LogWriterTypeFile, path))
		}
	}

	if console || (!file && mode == ModeService) {
		logger = logger.WithConsoleWriter(createWriterConfig(cfg, models.LogWriterTypeConsole, ""))
		if !console {
			logger.Warn().
				Strs("configured_outputs", cfg.Logging.Output).
				Msg("No visible log outputs configured - falling back to console")
		}
	}

	logger = logger.WithLevelFromString(cfg.Logging.Level)
	InitLogger(logger)
	return logger
}

// createWriterConfig maps the logging section onto an arbor writer.
func createWriterConfig(cfg *config.Config, writerType models.LogWriterType, filename string) models.WriterConfiguration {
	def := config.DefaultConfig().Logging
	if cfg != nil {
		if cfg.Logging.TimeFormat != "" {
			def.TimeFormat = cfg.Logging.TimeFormat
		}
		if cfg.Logging.Format != "" {
			def.Format = cfg.Logging.Format
		}
		if cfg.Logging.MaxSizeMB > 0 {
			def.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxBackups > 0 {
			def.MaxBackups = cfg.Logging.MaxBackups
		}
	}

	outputType := models.OutputFormatJSON
	if def.Format == "text" {
		outputType = models.OutputFormatLogfmt
	}

	return models.WriterConfiguration{
		Type:       writerType,
		FileName:   filename,
		TimeFormat: def.TimeFormat,
		OutputType: outputType,
		MaxSize:    int64(def.MaxSizeMB) * 1024 * 1024,
		MaxBackups: def.MaxBackups,
	}
}

// Stop flushes any remaining context logs before application shutdown.
func Stop() {
	arborcommon.Stop()
}
