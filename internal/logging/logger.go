// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stacq-io/stacq/pkg/stac"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Logger adapts a zerolog.Logger to the stac.Logger interface.
type Logger struct {
	logger zerolog.Logger
}

// New builds a Logger from configuration.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Logger()

	return &Logger{logger: logger}
}

// NewFromZerolog wraps an existing zerolog.Logger.
func NewFromZerolog(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Debug implements stac.Logger.
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.emit(l.logger.Debug(), msg, fields)
}

// Info implements stac.Logger.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.emit(l.logger.Info(), msg, fields)
}

// Warn implements stac.Logger.
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.emit(l.logger.Warn(), msg, fields)
}

// Error implements stac.Logger.
func (l *Logger) Error(msg string, fields map[string]any) {
	l.emit(l.logger.Error(), msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields map[string]any) {
	event.Fields(fields).Msg(msg)
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var _ stac.Logger = (*Logger)(nil)
