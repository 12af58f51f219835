// Package metrics provides Prometheus metrics for the tokenization pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tokenscope"
)

// Job metrics track tokenization jobs executed by workers.
var (
	// JobsTotal is the total number of jobs by outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Total number of tokenization jobs",
	}, []string{"status"})

	// JobDuration is a histogram of job duration in seconds.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of tokenization jobs in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"encoding"})

	// TokensTotal is the total number of tokens produced by encoding.
	TokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_total",
		Help:      "Total number of tokens produced",
	}, []string{"encoding"})

	// StaleResultsTotal counts worker results dropped because a newer job superseded them.
	StaleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_results_total",
		Help:      "Total number of superseded job results dropped",
	})
)

// Handle metrics track tokenizer handle lifecycle.
var (
	// HandlesCreatedTotal is the total number of handles resolved by encoding.
	HandlesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handles_created_total",
		Help:      "Total number of tokenizer handles created",
	}, []string{"encoding"})

	// HandlesDisposedTotal is the total number of handles disposed by encoding.
	HandlesDisposedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handles_disposed_total",
		Help:      "Total number of tokenizer handles disposed",
	}, []string{"encoding"})

	// HandlesOpen is the number of live tokenizer handles.
	HandlesOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "handles_open",
		Help:      "Number of live tokenizer handles",
	})

	// VocabDownloadsTotal is the total number of vocabulary downloads by outcome.
	VocabDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vocab_downloads_total",
		Help:      "Total number of vocabulary downloads",
	}, []string{"status"})
)

// Decode cache metrics.
var (
	// CacheHitsTotal is the total number of decode cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_cache_hits_total",
		Help:      "Total number of decode cache hits",
	})

	// CacheMissesTotal is the total number of decode cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_cache_misses_total",
		Help:      "Total number of decode cache misses",
	})
)

// Worker pool metrics.
var (
	// WorkersBusy is the number of pool workers executing a job.
	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_busy",
		Help:      "Number of pool workers executing a job",
	})

	// WorkersTotal is the number of pool workers that are not terminated.
	WorkersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_total",
		Help:      "Number of live pool workers",
	})

	// ComponentStatus tracks the health of collected components.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_status",
		Help:      "Health status of components (1=healthy, 0=unhealthy)",
	}, []string{"component"})
)

// HTTP metrics track the API server.
var (
	// HTTPRequestsTotal is the total number of HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"path", "method", "status"})

	// HTTPRequestDuration is a histogram of HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "method"})

	// HTTPRateLimitedTotal counts requests rejected by the rate limiter.
	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429",
	})

	// MCPRequestsTotal is the total number of MCP tool calls.
	MCPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mcp_requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool"})
)

// File watcher metrics.
var (
	// FileReloadsTotal counts input file reloads by outcome.
	FileReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watcher",
		Name:      "reloads_total",
		Help:      "Total number of watched input file reloads",
	}, []string{"status"})

	// WatchedFiles is the number of input files under watch.
	WatchedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "watcher",
		Name:      "files",
		Help:      "Number of input files under watch",
	})
)
