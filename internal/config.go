package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/worksledger/internal/ledger"
	pkgconfig "github.com/starford/worksledger/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// EnvPrefix prefixes every environment variable that overrides the file.
const EnvPrefix = "WORKS_"

// DefaultConfigFile is read when the requested config file does not exist.
const DefaultConfigFile = "config/config.yaml"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" envPrefix:"APP_"`
	Ledger LedgerConfig      `yaml:"ledger" envPrefix:"LEDGER_"`
	Auth   AuthConfig        `yaml:"auth" envPrefix:"AUTH_"`
	Events EventsConfig      `yaml:"events" envPrefix:"EVENTS_"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http" envPrefix:"HTTP_"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LedgerConfig selects the world-state database.
//
// Driver is "sqlite3" (DSN is a file path) or "postgres" (DSN is a
// connection URL understood by pgx).
type LedgerConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(ledger.DriverSQLite, ledger.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"MODE"`
	Token string `yaml:"token" env:"TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig tunes the SSE event stream.
type EventsConfig struct {
	// Throttle is the minimum interval between ledger.updated events.
	Throttle time.Duration `yaml:"throttle" env:"THROTTLE"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Ledger: LedgerConfig{
			Driver: ledger.DriverSQLite,
			DSN:    "./worksledger.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies
// WORKS_-prefixed environment overrides. When path does not exist the
// fallback file is read instead; the returned string names the file that
// was actually loaded.
func LoadConfig(path, fallback string) (*Config, string, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(path, fallback, cfg, pkgconfig.WithEnvPrefix(EnvPrefix)); err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, fallback, nil
	}
	return cfg, path, nil
}
