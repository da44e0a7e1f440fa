// Package log is the focuslink logging facade. Call sites pass structured
// fields as a map and a short snake_case message; zap does the encoding.
package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global Logger = newZapLogger(false, zapcore.InfoLevel)
)

// Logger defines the focuslink logging interface.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

// SetLogger replaces the global logger instance.
func SetLogger(l Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// GetLogger returns the current global logger instance.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Configure sets up the global logger. Any env other than "prod" gets the
// human readable development encoder.
func Configure(env, level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	SetLogger(newZapLogger(env != "prod", lvl))
	return nil
}

// Named returns a logger that stamps every entry with the component name.
func Named(component string) Logger {
	return WithFields(GetLogger(), map[string]any{"component": component})
}

// WithFields wraps l so that fields are merged into every entry.
// Per-call fields win on key collisions.
func WithFields(l Logger, fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	base := make(map[string]any, len(fields))
	for k, v := range fields {
		base[k] = v
	}
	return &fieldLogger{next: l, base: base}
}

func Info(fields map[string]any, msg string)  { GetLogger().Info(fields, msg) }
func Error(fields map[string]any, msg string) { GetLogger().Error(fields, msg) }
func Debug(fields map[string]any, msg string) { GetLogger().Debug(fields, msg) }
func Warn(fields map[string]any, msg string)  { GetLogger().Warn(fields, msg) }
func Panic(fields map[string]any, msg string) { GetLogger().Panic(fields, msg) }
func Fatal(fields map[string]any, msg string) { GetLogger().Fatal(fields, msg) }

// zapLogger implements Logger using Uber's zap.
type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &zapLogger{base: logger}
}

func (l *zapLogger) Info(fields map[string]any, msg string) {
	l.base.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(fields map[string]any, msg string) {
	l.base.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) Debug(fields map[string]any, msg string) {
	l.base.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(fields map[string]any, msg string) {
	l.base.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Panic(fields map[string]any, msg string) {
	l.base.Panic(msg, zapFields(fields)...)
}

func (l *zapLogger) Fatal(fields map[string]any, msg string) {
	l.base.Fatal(msg, zapFields(fields)...)
}

func zapFields(m map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

// fieldLogger merges a fixed field set into every call.
type fieldLogger struct {
	next Logger
	base map[string]any
}

func (f *fieldLogger) merge(fields map[string]any) map[string]any {
	out := make(map[string]any, len(f.base)+len(fields))
	for k, v := range f.base {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (f *fieldLogger) Info(fields map[string]any, msg string)  { f.next.Info(f.merge(fields), msg) }
func (f *fieldLogger) Error(fields map[string]any, msg string) { f.next.Error(f.merge(fields), msg) }
func (f *fieldLogger) Debug(fields map[string]any, msg string) { f.next.Debug(f.merge(fields), msg) }
func (f *fieldLogger) Warn(fields map[string]any, msg string)  { f.next.Warn(f.merge(fields), msg) }
func (f *fieldLogger) Panic(fields map[string]any, msg string) { f.next.Panic(f.merge(fields), msg) }
func (f *fieldLogger) Fatal(fields map[string]any, msg string) { f.next.Fatal(f.merge(fields), msg) }

// noopLogger discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Info(map[string]any, string)  {}
func (n *noopLogger) Error(map[string]any, string) {}
func (n *noopLogger) Debug(map[string]any, string) {}
func (n *noopLogger) Warn(map[string]any, string)  {}
func (n *noopLogger) Panic(map[string]any, string) {}
func (n *noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards all log messages.
func NewNoopLogger() Logger {
	return &noopLogger{}
}
