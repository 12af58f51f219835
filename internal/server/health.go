package server

import (
	"context"
	"sync"
	"time"

	"github.com/leefowlercu/tokenscope/internal/metrics"
)

// ComponentStatus is the state a tracked component last reported.
type ComponentStatus string

const (
	ComponentStatusRunning ComponentStatus = "running"
	ComponentStatusFailed  ComponentStatus = "failed"
	ComponentStatusUnknown ComponentStatus = "unknown"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status ComponentStatus `json:"status"`

	// Error contains the error message if Status is "failed".
	Error string `json:"error,omitempty"`

	// Critical components take the server out of readiness when they fail.
	Critical bool `json:"critical"`

	LastChecked time.Time `json:"last_checked"`

	// Since is when the component entered the current state.
	Since       time.Time `json:"since,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
}

// HealthStatus is the response body of /readyz.
type HealthStatus struct {
	// Status is "healthy", "degraded" or "unhealthy".
	Status     string                     `json:"status"`
	Ready      bool                       `json:"ready"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type trackedComponent struct {
	provider metrics.MetricsProvider
	health   ComponentHealth
}

// HealthManager aggregates the health of components that implement
// metrics.MetricsProvider. It is safe for concurrent use.
type HealthManager struct {
	mu         sync.RWMutex
	components map[string]*trackedComponent
	startTime  time.Time
}

// NewHealthManager creates an empty HealthManager.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		components: make(map[string]*trackedComponent),
		startTime:  time.Now(),
	}
}

// Track starts tracking provider under name. The returned provider records
// every collection result and should be handed to the metrics collector in
// place of the original.
func (m *HealthManager) Track(name string, provider metrics.MetricsProvider, critical bool) metrics.MetricsProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = &trackedComponent{
		provider: provider,
		health:   ComponentHealth{Status: ComponentStatusUnknown, Critical: critical},
	}
	return observedProvider{name: name, manager: m}
}

// Remove stops tracking name.
func (m *HealthManager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.components, name)
}

// Observe records the outcome of one health check.
func (m *HealthManager) Observe(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.components[name]
	if !ok {
		return
	}

	now := time.Now()
	next := ComponentStatusRunning
	if err != nil {
		next = ComponentStatusFailed
	}
	if c.health.Status != next {
		c.health.Since = now
	}
	c.health.Status = next
	c.health.LastChecked = now
	c.health.Error = ""
	if err != nil {
		c.health.Error = err.Error()
	} else {
		c.health.LastSuccess = now
	}

	healthy := 0.0
	if err == nil {
		healthy = 1
	}
	metrics.ComponentStatus.WithLabelValues(name).Set(healthy)
}

// Check checks every tracked component once.
func (m *HealthManager) Check(ctx context.Context) {
	m.mu.RLock()
	providers := make(map[string]metrics.MetricsProvider, len(m.components))
	for name, c := range m.components {
		providers[name] = c.provider
	}
	m.mu.RUnlock()

	for name, p := range providers {
		m.Observe(name, p.CollectMetrics(ctx))
	}
}

// Status returns the aggregate health. A failed critical component makes the
// server unhealthy and not ready; any other failure only degrades it.
func (m *HealthManager) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := HealthStatus{
		Status:     "healthy",
		Ready:      true,
		Uptime:     time.Since(m.startTime).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(m.components)),
	}

	for name, c := range m.components {
		status.Components[name] = c.health
		if c.health.Status != ComponentStatusFailed {
			continue
		}
		if c.health.Critical {
			status.Status = "unhealthy"
			status.Ready = false
		} else if status.Status == "healthy" {
			status.Status = "degraded"
		}
	}

	return status
}

type observedProvider struct {
	name    string
	manager *HealthManager
}

func (p observedProvider) CollectMetrics(ctx context.Context) error {
	p.manager.mu.RLock()
	c, ok := p.manager.components[p.name]
	p.manager.mu.RUnlock()
	if !ok {
		return nil
	}

	err := c.provider.CollectMetrics(ctx)
	p.manager.Observe(p.name, err)
	return err
}
