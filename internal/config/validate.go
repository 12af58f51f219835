package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/leefowlercu/tokenscope/internal/catalog"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validLogLevels lists the accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationErrors{{Field: "config", Message: "not loaded"}}
	}

	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		add("log_level", "must be one of: debug, info, warn, error; got %q", cfg.LogLevel)
	}

	// Tokenizer
	if cfg.Tokenizer.VocabDir == "" {
		add("tokenizer.vocab_dir", "must not be empty")
	}
	if cfg.Tokenizer.DecodeCacheSize < 0 {
		add("tokenizer.decode_cache_size", "must be non-negative, got %d", cfg.Tokenizer.DecodeCacheSize)
	}
	cat := catalog.New()
	for id, raw := range cfg.Tokenizer.VocabURLs {
		field := "tokenizer.vocab_urls." + id
		m, err := cat.Lookup(id)
		if err != nil {
			add(field, "unknown model %q", id)
			continue
		}
		if m.Kind != catalog.KindRemote {
			add(field, "model %q uses a built-in vocabulary", id)
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			add(field, "must be an http or https URL, got %q", raw)
		}
	}

	// Visualizer
	if _, err := cat.Lookup(cfg.Visualizer.DefaultModel); err != nil {
		add("visualizer.default_model", "unknown model %q", cfg.Visualizer.DefaultModel)
	}
	if cfg.Visualizer.DebounceMs < 0 {
		add("visualizer.debounce_ms", "must be non-negative, got %d", cfg.Visualizer.DebounceMs)
	}

	// Grid
	if cfg.Grid.MinCellWidth < 1 {
		add("grid.min_cell_width", "must be at least 1, got %d", cfg.Grid.MinCellWidth)
	}
	if cfg.Grid.Margin < 0 {
		add("grid.margin", "must be non-negative, got %d", cfg.Grid.Margin)
	}
	if cfg.Grid.NarrowColumns < 1 {
		add("grid.narrow_columns", "must be at least 1, got %d", cfg.Grid.NarrowColumns)
	}
	if cfg.Grid.RowHeight < 1 {
		add("grid.row_height", "must be at least 1, got %d", cfg.Grid.RowHeight)
	}
	if cfg.Grid.Overscan < 0 {
		add("grid.overscan", "must be non-negative, got %d", cfg.Grid.Overscan)
	}

	// Server
	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		add("server.http_port", "must be between 1 and 65535, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.HTTPBind == "" {
		add("server.http_bind", "must not be empty")
	}
	if cfg.Server.Workers < 1 {
		add("server.workers", "must be at least 1, got %d", cfg.Server.Workers)
	}
	if cfg.Server.RateLimit < 0 {
		add("server.rate_limit", "must be non-negative, got %g", cfg.Server.RateLimit)
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate limiting is enabled, got %d", cfg.Server.RateBurst)
	}
	if cfg.Server.MaxBodyBytes < 1 {
		add("server.max_body_bytes", "must be at least 1, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.ShutdownTimeout < 1 {
		add("server.shutdown_timeout", "must be at least 1 second, got %d", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MetricsInterval < 1 {
		add("server.metrics_interval", "must be at least 1 second, got %d", cfg.Server.MetricsInterval)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
