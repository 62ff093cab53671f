package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings of a run. Every field can be overridden from the
// environment; with nothing set the defaults apply.
type Config struct {
	LogLevel string `env:"MIMICRY_LOG_LEVEL"`
	// Seed of the random source. 0 picks a fresh seed on every run.
	Seed   uint64 `env:"MIMICRY_SEED"`
	Width  int    `env:"MIMICRY_WIDTH"`
	Trials int    `env:"MIMICRY_TRIALS"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel: "warn",
		Width:    70,
		Trials:   1000,
	}
}

// ParseEnv applies environment overrides on top of the values already in cfg.
func ParseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the values that cannot be fixed by falling back to a default.
func (c Config) Validate() error {
	var errs []error
	if c.Width < 1 {
		errs = append(errs, fmt.Errorf("width must be positive, got %d", c.Width))
	}
	if c.Trials < 0 {
		errs = append(errs, fmt.Errorf("trials must not be negative, got %d", c.Trials))
	}
	return errors.Join(errs...)
}

// Level maps LogLevel to a slog level. Unknown values mean warn.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
