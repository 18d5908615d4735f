// Package log provides a context-scoped structured logger for the aligner.
package log

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultlogger *zap.Logger

type contextKey int

const contextKeyFields contextKey = iota

func init() {
	Structured()
}

// Structured sets output to be JSON encoded, suitable for log collection.
func Structured() {
	cfg := zap.NewProductionConfig()
	enc := zap.NewProductionEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = levelFromEnv()

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defaultlogger = l
}

// Console sets output to be human-readable, for interactive runs.
func Console() {
	cfg := zap.NewDevelopmentConfig()
	enc := zap.NewDevelopmentEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = func(t time.Time, e zapcore.PrimitiveArrayEncoder) {
		e.AppendString(t.Format("2006-01-02T15:04:05.000"))
	}
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = levelFromEnv()

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defaultlogger = l
}

func levelFromEnv() zap.AtomicLevel {
	if lvl := os.Getenv("LOGLEVEL"); lvl != "" {
		cfg := zap.NewAtomicLevel()
		if err := cfg.UnmarshalText([]byte(lvl)); err == nil {
			return cfg
		}
	}
	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

// Logger returns the logger for ctx, decorated with any fields attached via With/WithFields.
func Logger(ctx context.Context) *zap.Logger {
	if flds, ok := ctx.Value(contextKeyFields).([]zap.Field); ok {
		return defaultlogger.With(flds...)
	}
	return defaultlogger
}

// With attaches a single key/value field to the returned context.
func With(ctx context.Context, key string, value interface{}) context.Context {
	return WithFields(ctx, zap.Any(key, value))
}

// WithFields attaches structured fields to the returned context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	var flds []zap.Field
	if existing, ok := ctx.Value(contextKeyFields).([]zap.Field); ok {
		flds = append(flds, existing...)
	}
	flds = append(flds, fields...)
	return context.WithValue(ctx, contextKeyFields, flds)
}

// Print logs at info level, matching fmt.Sprint semantics.
func Print(v ...interface{}) {
	defaultlogger.Info(fmt.Sprint(v...))
}

// Printf logs at info level, matching fmt.Sprintf semantics.
func Printf(format string, v ...interface{}) {
	defaultlogger.Sugar().Infof(format, v...)
}
