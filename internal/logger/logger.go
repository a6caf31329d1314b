// Package logger builds the storedex zap logger and carries it through request contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/storedex/internal/version"
)

// NewLogger builds the service logger for env. prod writes JSON; local, dev
// and docker write colored console lines. A non-empty level (debug, info,
// warn, error) replaces the environment default.
//
// Every line carries the build version so catalog incidents can be tied to a release.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logger: unknown environment %q", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("version", version.Version)),
	)
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l.Named("storedex"), nil
}
