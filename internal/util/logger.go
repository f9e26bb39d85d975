package util

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "vsgifts-api"

var (
	current  atomic.Pointer[zap.Logger]
	initOnce sync.Once
)

// Init builds the process logger once; later calls return the first one.
// Production logs are sampled JSON without stack traces, development logs
// are colored console lines unless format is "json".
func Init(environment, level, format string) *zap.Logger {
	initOnce.Do(func() {
		logger, err := loggerConfig(environment, level, format).Build(
			zap.AddCaller(),
			zap.AddCallerSkip(1),
			zap.Fields(zap.String("service", serviceName), zap.String("env", environment)),
		)
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
		current.Store(logger)
		zap.ReplaceGlobals(logger)
	})
	return current.Load()
}

func loggerConfig(environment, level, format string) zap.Config {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
		cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(level))
	cfg.Encoding = "console"
	if format == "json" {
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// parseLogLevel falls back to info for empty or unknown names.
func parseLogLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

// Get returns the process logger, initializing a production logger when
// Init has not run yet.
func Get() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return Init("production", "info", "json")
}

func Named(component string) *zap.Logger {
	return Get().Named(component)
}

func Sync() {
	if l := current.Load(); l != nil {
		_ = l.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

// Field helpers keep call sites free of zap imports.

func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Strings(key string, values []string) zap.Field {
	return zap.Strings(key, values)
}

func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// Email logs an address with its local part masked.
func Email(address string) zap.Field {
	return zap.String("email", MaskEmail(address))
}
