// Package cmdutil holds helpers shared by the command implementations.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leefowlercu/tokenscope/internal/config"
	"github.com/leefowlercu/tokenscope/internal/fsutil"
)

// ResolvePath expands "~" and returns an absolute, cleaned path.
// Empty input returns an empty string.
func ResolvePath(path string) (string, error) {
	expanded := config.ExpandPath(path)
	if expanded == "" {
		return "", nil
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// ReadInput returns the contents of path and a label for it. A path of "-"
// reads stdin.
func ReadInput(path string, stdin io.Reader) (text, source string, err error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin; %w", err)
		}
		return string(data), "stdin", nil
	}

	resolved, err := ResolvePath(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s; %w", path, err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s; %w", resolved, err)
	}
	if err := fsutil.CheckText(resolved, data); err != nil {
		return "", "", err
	}
	return string(data), resolved, nil
}

// LoadConfig returns the validated typed configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration; %w", err)
	}
	return cfg, nil
}
