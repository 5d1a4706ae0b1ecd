package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is a configured severity name.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// ParseLevel accepts LOG_LEVEL values case-insensitively. Anything unknown is info.
func ParseLevel(name string) Level {
	switch l := Level(strings.ToLower(strings.TrimSpace(name))); l {
	case DebugLevel, WarnLevel, ErrorLevel:
		return l
	default:
		return InfoLevel
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type settings struct {
	level       Level
	outputPaths []string
	service     string
}

// Option configures NewLogger.
type Option func(*settings)

// WithLoggingLevel sets the minimum level written. The default is info.
func WithLoggingLevel(level Level) Option {
	return func(s *settings) { s.level = level }
}

// WithOutputPaths replaces stderr with the given zap sinks, e.g. a file path.
func WithOutputPaths(paths []string) Option {
	return func(s *settings) { s.outputPaths = paths }
}

// WithService stamps a "service" field on every entry.
func WithService(name string) Option {
	return func(s *settings) { s.service = name }
}
