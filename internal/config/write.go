package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Write validates cfg and saves it to path as YAML. Blank vocab_urls entries
// are dropped and the log level is lowercased first; cfg itself is not
// modified. The file is replaced atomically so a SIGHUP reload never reads a
// partial file. The directory is created 0700 and the file written 0600,
// since it may hold tokenizer.auth_token.
func Write(cfg *Config, path string) error {
	if cfg == nil {
		return fmt.Errorf("failed to write config; no config")
	}
	out := normalized(*cfg)
	if err := Validate(&out); err != nil {
		return fmt.Errorf("failed to write config; %w", err)
	}

	path = expandHome(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s; %w", dir, err)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config; %w", err)
	}

	header := fmt.Sprintf("# tokenscope configuration\n# Generated: %s\n# Running commands reload this file on SIGHUP.\n\n",
		time.Now().Format(time.RFC3339))
	content := append([]byte(header), data...)

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config file in %s; %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file %s; %w", path, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config file permissions; %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file %s; %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config file %s; %w", path, err)
	}

	return nil
}

// WriteDefault writes the configuration to the default config path.
func WriteDefault(cfg *Config) error {
	return Write(cfg, DefaultConfigPath())
}

func normalized(cfg Config) Config {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	urls := make(map[string]string, len(cfg.Tokenizer.VocabURLs))
	for id, raw := range cfg.Tokenizer.VocabURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		urls[id] = raw
	}
	cfg.Tokenizer.VocabURLs = urls
	return cfg
}
