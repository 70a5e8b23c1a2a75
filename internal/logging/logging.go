// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"heston-greeks/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days

	// ConsoleOut receives console output. Defaults to stderr so logs never
	// interleave with tables on stdout.
	ConsoleOut io.Writer
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "heston-greeks", "logs", "heston-greeks.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		out := cfg.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		consoleWriter := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithRun adds the run identity to the logger context.
func WithRun(logger zerolog.Logger, run models.Run) zerolog.Logger {
	return logger.With().
		Str("run_id", run.ID).
		Str("workflow", string(run.Workflow)).
		Str("scheme", string(run.Scheme)).
		Logger()
}

// WithScheme adds a scheme name to the logger context.
func WithScheme(logger zerolog.Logger, scheme models.SchemeName) zerolog.Logger {
	return logger.With().Str("scheme", string(scheme)).Logger()
}

// LogRun logs a completed batch.
func LogRun(logger zerolog.Logger, run models.Run) {
	logger.Info().
		Str("event", "run").
		Str("run_id", run.ID).
		Str("workflow", string(run.Workflow)).
		Str("scheme", string(run.Scheme)).
		Uint64("seed", run.Seed).
		Int("paths", run.Paths).
		Int("trials", run.Trials).
		Dur("duration", run.Duration).
		Msg("Run complete")
}

// LogPersist logs where results were written, or why they were not.
func LogPersist(logger zerolog.Logger, artifact string, paths []string, err error) {
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event = event.
		Str("event", "persist").
		Str("artifact", artifact).
		Strs("paths", paths)

	if err != nil {
		event.Msg("Persisting results failed")
	} else {
		event.Msg("Results persisted")
	}
}
