// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"strings"

	"github.com/producthunt/apiserver/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger in production and a console logger otherwise,
// filtered at level ("debug", "info", "warn", "error").
func New(env, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == config.EnvProduction {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(zap.String("service", "producthunt")))
}

// Must is New for process startup, falling back to info level on a bad level.
func Must(env, level string) *zap.Logger {
	logger, err := New(env, level)
	if err == nil {
		return logger
	}
	logger, fallbackErr := New(env, "info")
	if fallbackErr != nil {
		panic(fallbackErr)
	}
	logger.Warn("falling back to info log level", zap.String("requested", level), zap.Error(err))
	return logger
}
