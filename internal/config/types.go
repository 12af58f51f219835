package config

import (
	"time"

	"github.com/leefowlercu/tokenscope/internal/grid"
)

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel   string           `yaml:"log_level" mapstructure:"log_level"`
	LogFile    string           `yaml:"log_file" mapstructure:"log_file"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer" mapstructure:"tokenizer"`
	Visualizer VisualizerConfig `yaml:"visualizer" mapstructure:"visualizer"`
	Grid       grid.Options     `yaml:"grid" mapstructure:"grid"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// TokenizerConfig controls vocabulary loading.
type TokenizerConfig struct {
	// Offline uses the embedded built-in vocabularies instead of fetching them.
	Offline bool `yaml:"offline" mapstructure:"offline"`

	// VocabDir caches downloaded remote vocabularies.
	VocabDir        string            `yaml:"vocab_dir" mapstructure:"vocab_dir"`
	DecodeCacheSize int               `yaml:"decode_cache_size" mapstructure:"decode_cache_size"`
	VocabURLs       map[string]string `yaml:"vocab_urls" mapstructure:"vocab_urls"`

	// AuthToken is sent as a bearer token when downloading vocabularies.
	AuthToken string `yaml:"auth_token,omitempty" mapstructure:"auth_token"`
}

// VisualizerConfig controls the interactive view.
type VisualizerConfig struct {
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
	DebounceMs   int    `yaml:"debounce_ms" mapstructure:"debounce_ms"`

	// Isolate runs the worker in a child process instead of a goroutine.
	Isolate bool `yaml:"isolate" mapstructure:"isolate"`
}

// Debounce returns the quiet period as a duration.
func (c VisualizerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	HTTPBind        string   `yaml:"http_bind" mapstructure:"http_bind"`
	HTTPPort        int      `yaml:"http_port" mapstructure:"http_port"`
	Workers         int      `yaml:"workers" mapstructure:"workers"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per client, 0 = disabled
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	MetricsInterval int      `yaml:"metrics_interval" mapstructure:"metrics_interval"` // seconds
}
