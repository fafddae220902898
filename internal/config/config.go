// Package config loads the service configuration from the environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/newtonopt/internal/logging"
	"github.com/copyleftdev/newtonopt/internal/optimization/linesearch"
	"github.com/copyleftdev/newtonopt/internal/optimization/newton"
)

type Config struct {
	Environment string         `env:"ENV" envDefault:"development" yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Logging     logging.Config `yaml:"logging"`
	// Minimization holds the defaults for every run; requests may
	// override individual fields.
	Minimization MinimizationConfig `yaml:"minimization"`
}

type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080" yaml:"port"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s" yaml:"write_timeout"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s" yaml:"request_timeout"`
	// MaxRuns bounds the number of stored runs; the oldest is evicted first.
	MaxRuns int `env:"HTTP_MAX_RUNS" envDefault:"1000" yaml:"max_runs"`
}

// MinimizationConfig configures the Newton minimizer and its line search.
type MinimizationConfig struct {
	GradientTolerance float64          `env:"NEWTON_GRADIENT_TOLERANCE" envDefault:"1e-5" yaml:"gradient_tolerance"`
	MaximumIterations int              `env:"NEWTON_MAX_ITERATIONS" envDefault:"1000" yaml:"maximum_iterations"`
	UseLineSearch     bool             `env:"NEWTON_USE_LINE_SEARCH" envDefault:"false" yaml:"use_line_search"`
	LineSearch        LineSearchConfig `yaml:"line_search"`
}

type LineSearchConfig struct {
	Method            string  `env:"LINESEARCH_METHOD" envDefault:"weak-wolfe" yaml:"method"`
	C1                float64 `env:"LINESEARCH_C1" envDefault:"1e-4" yaml:"c1"`
	C2                float64 `env:"LINESEARCH_C2" envDefault:"0.9" yaml:"c2"`
	Tolerance         float64 `env:"LINESEARCH_TOLERANCE" envDefault:"1e-4" yaml:"tolerance"`
	MaximumIterations int     `env:"LINESEARCH_MAX_ITERATIONS" envDefault:"1000" yaml:"maximum_iterations"`
}

// Load parses the environment, applying defaults for unset variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && os.Getenv("LOG_LEVEL") == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads the environment as Load does and then overlays the YAML
// file at path. Keys absent from the file keep their environment value.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port %d", c.HTTP.Port)
	}
	if c.HTTP.MaxRuns <= 0 {
		return fmt.Errorf("HTTP max runs must be positive, got %d", c.HTTP.MaxRuns)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Minimization.Validate()
}

// Validate builds the minimizer once and reports any parameter it rejects.
func (m MinimizationConfig) Validate() error {
	_, err := m.NewMinimizer(zap.NewNop())
	return err
}

// MinimizerConfig converts to the minimizer's own configuration.
func (m MinimizationConfig) MinimizerConfig() newton.Config {
	return newton.Config{
		GradientTolerance: m.GradientTolerance,
		MaximumIterations: m.MaximumIterations,
		UseLineSearch:     m.UseLineSearch,
	}
}

// Params converts to line search parameters.
func (l LineSearchConfig) Params() linesearch.Params {
	return linesearch.Params{
		C1:                 l.C1,
		C2:                 l.C2,
		ParameterTolerance: l.Tolerance,
		MaximumIterations:  l.MaximumIterations,
	}
}

// NewMinimizer builds a Newton minimizer and its line searcher, both
// logging to logger.
func (m MinimizationConfig) NewMinimizer(logger *zap.Logger) (*newton.Minimizer, error) {
	searcher, err := linesearch.New(m.LineSearch.Method, m.LineSearch.Params(), logger)
	if err != nil {
		return nil, err
	}
	return newton.NewMinimizer(m.MinimizerConfig(),
		newton.WithLogger(logger),
		newton.WithLineSearcher(searcher),
	)
}
