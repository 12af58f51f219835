package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewDefaultConfig()
	cfg.Visualizer.DefaultModel = "gpt-4"
	cfg.Server.Workers = 3

	if err := Write(&cfg, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# tokenscope configuration") {
		t.Error("missing header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Visualizer.DefaultModel != "gpt-4" || loaded.Server.Workers != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestConfigExists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOKENSCOPE_CONFIG_DIR", dir)

	if ConfigExists() {
		t.Error("ConfigExists() = true before write")
	}
	cfg := NewDefaultConfig()
	if err := WriteDefault(&cfg); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !ConfigExists() {
		t.Error("ConfigExists() = false after write")
	}
	if !ConfigExistsAt(filepath.Join(dir, "config.yaml")) {
		t.Error("ConfigExistsAt() = false")
	}
}

func TestWrite_NormalizesBeforeSaving(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := NewDefaultConfig()
	cfg.LogLevel = " DEBUG "
	cfg.Tokenizer.VocabURLs = map[string]string{
		"llama-3":   " https://vocab.example/llama3.tiktoken ",
		"llama-3.1": "  ",
	}

	if err := Write(&cfg, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if cfg.LogLevel != " DEBUG " || len(cfg.Tokenizer.VocabURLs) != 2 {
		t.Error("Write() modified the caller's config")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", loaded.LogLevel)
	}
	want := map[string]string{"llama-3": "https://vocab.example/llama3.tiktoken"}
	if len(loaded.Tokenizer.VocabURLs) != 1 || loaded.Tokenizer.VocabURLs["llama-3"] != want["llama-3"] {
		t.Errorf("vocab_urls = %v, want %v", loaded.Tokenizer.VocabURLs, want)
	}
}

func TestWrite_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	cfg.Visualizer.DefaultModel = "no-such-model"
	if err := Write(&cfg, path); err == nil {
		t.Fatal("Write() error = nil, want validation error")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "log_level: warn\n" {
		t.Errorf("existing file changed to %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
