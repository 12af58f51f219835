// Package testutil provides isolated config environments for command tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/tokenscope/internal/config"
)

// TestEnv is an isolated config directory with config reinitialized from it.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
}

// NewTestEnv points every path setting at a temp directory and
// reinitializes config. Cleanup is automatic via t.Cleanup.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	configDir := filepath.Join(t.TempDir(), "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create test config dir: %v", err)
	}

	// AutomaticEnv picks these up over defaults and any file.
	t.Setenv(config.EnvPrefix+"_CONFIG_DIR", configDir)
	t.Setenv(config.EnvPrefix+"_LOG_FILE", filepath.Join(configDir, "tokenscope.log"))
	t.Setenv(config.EnvPrefix+"_TOKENIZER_VOCAB_DIR", filepath.Join(configDir, "vocab"))
	t.Setenv(config.EnvPrefix+"_TOKENIZER_OFFLINE", "true")

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}

	t.Cleanup(config.Reset)

	return &TestEnv{t: t, ConfigDir: configDir}
}

// ConfigPath returns the config file path inside the environment.
func (e *TestEnv) ConfigPath() string {
	return filepath.Join(e.ConfigDir, "config.yaml")
}

// WriteConfig writes content as the config file and reinitializes config.
func (e *TestEnv) WriteConfig(content string) string {
	e.t.Helper()

	path := e.ConfigPath()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to write config: %v", err)
	}
	config.Reset()
	if err := config.Init(); err != nil {
		e.t.Fatalf("failed to reinitialize config: %v", err)
	}
	return path
}

// CreateTestFile writes content to name in a fresh temp directory and
// returns its absolute path.
func (e *TestEnv) CreateTestFile(name, content string) string {
	e.t.Helper()

	path := filepath.Join(e.t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}
