package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls how the process-wide logger is built.
type LoggerConfig struct {
	Level       string
	Development bool
	CallerKey   string
	TimeKey     string
	CallerSkip  int
}

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// Init builds the global logger. Until it is called every log call is a no-op.
func Init(cfg LoggerConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.CallerKey != "" {
		zcfg.EncoderConfig.CallerKey = cfg.CallerKey
	}
	if cfg.TimeKey != "" {
		zcfg.EncoderConfig.TimeKey = cfg.TimeKey
	}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zcfg.Build(zap.AddCallerSkip(cfg.CallerSkip))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Set(l)
	return nil
}

// Set replaces the global logger. Tests use it with an observer core.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// L returns the current global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = L().Sync()
}
