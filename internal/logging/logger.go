// Package logging builds the service's zap loggers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "floormon"

// New returns the root logger. Development mode uses the console encoder with
// colored levels; production emits JSON. Both stamp entries with ISO-8601
// times so log lines line up with the timestamps persisted in the status and
// journal files, and both carry a service field for aggregation.
func New(development bool) (*zap.Logger, error) {
	logger, err := newConfig(development).Build(
		zap.Fields(zap.String("service", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func newConfig(development bool) zap.Config {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		// The hub's drop warnings are already rate limited; sampling on top
		// of that could swallow them entirely.
		cfg.Sampling = nil
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
