package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsProvider is an interface for components that provide metrics.
type MetricsProvider interface {
	// CollectMetrics collects current metrics from the component.
	CollectMetrics(ctx context.Context) error
}

// Collector polls registered providers on an interval.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	running   bool
}

// NewCollector creates a new metrics collector.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Register adds a metrics provider to the collector.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Unregister removes a metrics provider from the collector.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.providers, name)
}

// Start begins periodic metric collection.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.collect(ctx)
	go c.run(ctx)

	return nil
}

// Stop halts periodic metric collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.stopCh)
	c.running = false
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			ComponentStatus.WithLabelValues(name).Set(0)
		} else {
			ComponentStatus.WithLabelValues(name).Set(1)
		}
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a handler for a specific registry.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordJob records a finished tokenization job.
func RecordJob(encoding string, tokenCount int, duration time.Duration, err error) {
	if err != nil {
		JobsTotal.WithLabelValues("error").Inc()
		return
	}
	JobsTotal.WithLabelValues("complete").Inc()
	JobDuration.WithLabelValues(encoding).Observe(duration.Seconds())
	TokensTotal.WithLabelValues(encoding).Add(float64(tokenCount))
}

// RecordHandleCreated records a resolved tokenizer handle.
func RecordHandleCreated(encoding string) {
	HandlesCreatedTotal.WithLabelValues(encoding).Inc()
	HandlesOpen.Inc()
}

// RecordHandleDisposed records a disposed tokenizer handle.
func RecordHandleDisposed(encoding string) {
	HandlesDisposedTotal.WithLabelValues(encoding).Inc()
	HandlesOpen.Dec()
}

// RecordVocabDownload records a vocabulary download outcome.
func RecordVocabDownload(err error) {
	if err != nil {
		VocabDownloadsTotal.WithLabelValues("error").Inc()
		return
	}
	VocabDownloadsTotal.WithLabelValues("success").Inc()
}

// RecordCacheAccess records a decode cache access.
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHitsTotal.Inc()
	} else {
		CacheMissesTotal.Inc()
	}
}

// RecordStaleResult records a dropped superseded result.
func RecordStaleResult() {
	StaleResultsTotal.Inc()
}

// RecordMCPRequest records an MCP tool call.
func RecordMCPRequest(tool string) {
	MCPRequestsTotal.WithLabelValues(tool).Inc()
}

// UpdateWorkerMetrics updates the worker pool gauges.
func UpdateWorkerMetrics(total, busy int) {
	WorkersTotal.Set(float64(total))
	WorkersBusy.Set(float64(busy))
}

// RecordFileReload records a watched file reload. unchanged reloads found
// identical content.
func RecordFileReload(unchanged bool, err error) {
	switch {
	case err != nil:
		FileReloadsTotal.WithLabelValues("error").Inc()
	case unchanged:
		FileReloadsTotal.WithLabelValues("unchanged").Inc()
	default:
		FileReloadsTotal.WithLabelValues("changed").Inc()
	}
}
