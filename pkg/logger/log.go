package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface is what components take; *Logger is the only production implementation.
type Interface interface {
	Debug(message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
	Info(message string, fields ...Field)
	InfoContext(ctx context.Context, message string, fields ...Field)
	Warn(message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	Error(err error, fields ...Field)
	ErrorContext(ctx context.Context, err error, fields ...Field)
	With(fields ...Field) Interface
}

// Field is one structured key/value pair on a log entry.
type Field struct {
	Key   string
	Value any
}

func NewField(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger writes JSON entries through zap.
type Logger struct {
	zl *zap.Logger
}

var _ Interface = (*Logger)(nil)

// NewLogger builds a production zap logger. Entries use "message" as the message key.
func NewLogger(opts ...Option) (*Logger, error) {
	s := settings{level: InfoLevel}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(s.level.zap())
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(s.outputPaths) > 0 {
		cfg.OutputPaths = s.outputPaths
	}
	if s.service != "" {
		cfg.InitialFields = map[string]any{"service": s.service}
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zl: zl}, nil
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// With returns a child logger that stamps fields on every entry.
func (l *Logger) With(fields ...Field) Interface {
	return &Logger{zl: l.zl.With(toZap(fields)...)}
}

func (l *Logger) Debug(message string, fields ...Field) {
	l.zl.Debug(message, toZap(fields)...)
}

func (l *Logger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, withContext(ctx, fields)...)
}

func (l *Logger) Info(message string, fields ...Field) {
	l.zl.Info(message, toZap(fields)...)
}

func (l *Logger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, withContext(ctx, fields)...)
}

func (l *Logger) Warn(message string, fields ...Field) {
	l.zl.Warn(message, toZap(fields)...)
}

func (l *Logger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, withContext(ctx, fields)...)
}

// Error logs err.Error() as the message. A coded error gets an error_code
// field, and a stack carried by the error replaces zap's own.
func (l *Logger) Error(err error, fields ...Field) {
	ce := l.zl.Check(zapcore.ErrorLevel, err.Error())
	if ce == nil {
		return
	}
	if code := errors.CodeOf(err); code != "" {
		fields = append(fields, NewField("error_code", code))
	}
	if st, ok := err.(errors.StackTracer); ok && st.StackTrace() != nil {
		ce.Stack = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}
	ce.Write(toZap(fields)...)
}

func (l *Logger) ErrorContext(ctx context.Context, err error, fields ...Field) {
	l.Error(err, withContext(ctx, fields)...)
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// withContext appends the correlation ids carried by ctx.
func withContext(ctx context.Context, fields []Field) []Field {
	fields = append(fields, NewField("request_id", util.GetRequestID(ctx)))
	if id := util.GetEventID(ctx); id != "" {
		fields = append(fields, NewField("event_id", id))
	}
	return fields
}
