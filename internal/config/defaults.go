package config

import (
	"github.com/spf13/viper"

	"github.com/leefowlercu/tokenscope/internal/grid"
)

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/tokenscope/tokenscope.log"

	DefaultTokenizerOffline         = true
	DefaultTokenizerVocabDir        = "~/.cache/tokenscope/vocab"
	DefaultTokenizerDecodeCacheSize = 4096

	DefaultVisualizerModel      = "gpt-4o"
	DefaultVisualizerDebounceMs = 150
	DefaultVisualizerIsolate    = false

	DefaultServerHTTPBind        = "127.0.0.1"
	DefaultServerHTTPPort        = 7700
	DefaultServerWorkers         = 4
	DefaultServerRateLimit       = 20.0
	DefaultServerRateBurst       = 40
	DefaultServerMaxBodyBytes    = 4 << 20
	DefaultServerShutdownTimeout = 10 // seconds
	DefaultServerMetricsInterval = 15 // seconds
)

// DefaultServerCORSOrigins allows any browser origin.
var DefaultServerCORSOrigins = []string{"*"}

// setDefaults registers all default configuration values with v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("tokenizer.offline", DefaultTokenizerOffline)
	v.SetDefault("tokenizer.vocab_dir", DefaultTokenizerVocabDir)
	v.SetDefault("tokenizer.decode_cache_size", DefaultTokenizerDecodeCacheSize)
	v.SetDefault("tokenizer.vocab_urls", map[string]string{})
	v.SetDefault("tokenizer.auth_token", "")

	v.SetDefault("visualizer.default_model", DefaultVisualizerModel)
	v.SetDefault("visualizer.debounce_ms", DefaultVisualizerDebounceMs)
	v.SetDefault("visualizer.isolate", DefaultVisualizerIsolate)

	g := grid.DefaultOptions()
	v.SetDefault("grid.min_cell_width", g.MinCellWidth)
	v.SetDefault("grid.margin", g.Margin)
	v.SetDefault("grid.narrow_breakpoint", g.NarrowBreakpoint)
	v.SetDefault("grid.narrow_columns", g.NarrowColumns)
	v.SetDefault("grid.row_height", g.RowHeight)
	v.SetDefault("grid.overscan", g.Overscan)

	v.SetDefault("server.http_bind", DefaultServerHTTPBind)
	v.SetDefault("server.http_port", DefaultServerHTTPPort)
	v.SetDefault("server.workers", DefaultServerWorkers)
	v.SetDefault("server.rate_limit", DefaultServerRateLimit)
	v.SetDefault("server.rate_burst", DefaultServerRateBurst)
	v.SetDefault("server.max_body_bytes", DefaultServerMaxBodyBytes)
	v.SetDefault("server.cors_origins", DefaultServerCORSOrigins)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.metrics_interval", DefaultServerMetricsInterval)
}

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Tokenizer: TokenizerConfig{
			Offline:         DefaultTokenizerOffline,
			VocabDir:        DefaultTokenizerVocabDir,
			DecodeCacheSize: DefaultTokenizerDecodeCacheSize,
			VocabURLs:       map[string]string{},
		},
		Visualizer: VisualizerConfig{
			DefaultModel: DefaultVisualizerModel,
			DebounceMs:   DefaultVisualizerDebounceMs,
			Isolate:      DefaultVisualizerIsolate,
		},
		Grid: grid.DefaultOptions(),
		Server: ServerConfig{
			HTTPBind:        DefaultServerHTTPBind,
			HTTPPort:        DefaultServerHTTPPort,
			Workers:         DefaultServerWorkers,
			RateLimit:       DefaultServerRateLimit,
			RateBurst:       DefaultServerRateBurst,
			MaxBodyBytes:    DefaultServerMaxBodyBytes,
			CORSOrigins:     DefaultServerCORSOrigins,
			ShutdownTimeout: DefaultServerShutdownTimeout,
			MetricsInterval: DefaultServerMetricsInterval,
		},
	}
}
