package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. The local environment gets a
// human-readable development logger; everything else logs JSON.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "" || env == "local" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	// stdout is reserved for command output and the MCP stdio transport
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
