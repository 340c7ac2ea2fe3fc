// Package logger provides the structured logging interface shared by every
// legal-indexer component.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger taken by every component constructor.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger carrying fields on every entry.
	With(fields ...Field) Logger
	Sync() error
}

// Field is a type alias for zap.Field.
type Field = zap.Field

// Config selects the level and destination of log output.
type Config struct {
	Level string
	// Development disables sampling so every entry of a run is kept.
	Development bool
	// OutputPaths defaults to stdout.
	OutputPaths []string
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a JSON logger with ISO8601 timestamps and short callers.
func New(cfg Config) (Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(levelOf(cfg.Level))
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	if cfg.Development {
		zapCfg.Sampling = nil
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return Wrap(z), nil
}

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

// NewFromLoggingConfig creates a Logger from the level/debug pair carried by
// service configuration. Debug forces the debug level and disables sampling.
func NewFromLoggingConfig(level string, debug bool) (Logger, error) {
	if debug {
		level = "debug"
	}
	return New(Config{Level: level, Development: debug})
}

// levelOf maps a configured level name to zap. Unknown names are info.
func levelOf(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field) { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field) { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Sync() error { return l.z.Sync() }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(fields...)}
}
