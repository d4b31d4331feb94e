// Package config provides YAML-based configuration loading with environment
// variable expansion and an environment variable overlay.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Option configures Load.
type Option func(*options)

type options struct {
	envPrefix string
}

// WithEnvPrefix sets the prefix of the variables read by the env overlay.
// Fields are matched through their `env` tags, e.g. prefix "WORKS_" with
// tag `env:"DSN"` under `envPrefix:"LEDGER_"` reads WORKS_LEDGER_DSN.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// Load loads configuration from a YAML file with environment variable
// expansion, then overlays variables named by `env` struct tags and
// validates the result.
func Load[T any](filename string, target *T, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := env.ParseWithOptions(target, env.Options{Prefix: o.envPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T, opts ...Option) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target, opts...)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target, opts...)
}
