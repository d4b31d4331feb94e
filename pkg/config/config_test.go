package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string        `yaml:"name" env:"NAME"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	DB      struct {
		DSN string `yaml:"dsn" env:"DSN"`
	} `yaml:"db" envPrefix:"DB_"`
}

type validated struct {
	Port int `yaml:"port"`
}

func (v *validated) Validate() error {
	if v.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExpandsAndOverlays(t *testing.T) {
	t.Setenv("TEST_CFG_NAME", "from-expand")
	t.Setenv("TCFG_DB_DSN", "file:overlay.db")

	path := writeFile(t, "name: ${TEST_CFG_NAME}\ntimeout: 3s\ndb:\n  dsn: file:yaml.db\n")

	var cfg sample
	require.NoError(t, Load(path, &cfg, WithEnvPrefix("TCFG_")))
	assert.Equal(t, "from-expand", cfg.Name)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "file:overlay.db", cfg.DB.DSN)
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "port: 0\n")

	var cfg validated
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is required")
}

func TestLoadErrors(t *testing.T) {
	var cfg sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Error(t, Load(writeFile(t, "name: [unclosed"), &cfg))
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "name: default\n")

	var cfg sample
	require.NoError(t, LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &cfg))
	assert.Equal(t, "default", cfg.Name)

	assert.Error(t, LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &cfg))
}
