// Package logging constructs NetHawk's process-wide zap.Logger: a
// human-readable console encoder for ordinary runs, switched to a JSON
// encoder under --debug so logs can be piped to a collector.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger. debug selects JSON output at debug level;
// otherwise the console encoder runs at info level.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	if debug {
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

// Sync flushes buffered log entries, ignoring the common "invalid argument"
// error zap returns when stderr is a terminal.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}
