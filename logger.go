package lintas

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging hook used by the client. Arguments after
// msg are alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig selects which debug-level events are logged.
type DebugConfig struct {
	Enabled          bool
	LogRequests      bool
	LogStreams       bool
	LogCancellations bool
}

// DefaultDebugConfig returns a disabled config with every category selected.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:          false,
		LogRequests:      true,
		LogStreams:       true,
		LogCancellations: true,
	}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

// NewSimpleLogger returns a human readable console logger at debug level.
func NewSimpleLogger() Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	l, err := cfg.Build()
	if err != nil {
		return NopLogger()
	}
	return NewZapLogger(l.Named("lintas"))
}

// NopLogger discards everything.
func NopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}
