package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the configuration for the logger.
type Config struct {
	// Level is the minimum log level to output (debug, info, warn, error)
	Level string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
	// Format is the output encoding (json, console)
	Format string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
	// Output is the output destination (stdout, stderr, or file path)
	Output string `env:"LOG_OUTPUT" envDefault:"stderr" yaml:"output"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// Validate checks that the level and format are understood.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", c.Format)
	}
	if c.Output == "" {
		return fmt.Errorf("log output must not be empty")
	}
	return nil
}

// NewLogger creates a new zap logger with the given configuration.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := zapcore.ParseLevel(cfg.Level)

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = strings.ToLower(cfg.Format)
	zc.OutputPaths = []string{cfg.Output}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	// Debug output is per iteration; sampling would drop most of it.
	zc.Sampling = nil

	return zc.Build()
}
