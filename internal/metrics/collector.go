// Package metrics implements the MetricsCollector connection adapter's
// concrete binding (§4.4, §AMBIENT STACK) on top of prometheus/client_golang,
// adapted from the teacher's Prometheus registry/exposition pattern. The
// exposition handler is mounted on the admin HTTP surface (internal/admin)
// rather than served on its own port, per the single admin surface the
// proxy exposes.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the Prometheus registry.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Collector implements types.MetricsCollector: the three read-outcome
// counters, an allocator-assignment gauge, a recipe-request counter, and
// per-region backend latency/error histograms.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	readOutcomeCounter     *prometheus.CounterVec
	allocatorAssignedGauge prometheus.Gauge
	recipeRequestCounter   prometheus.Counter
	backendLatency         *prometheus.HistogramVec
	backendErrorCounter    *prometheus.CounterVec

	lastAssigned int
}

// NewCollector builds a Collector. With config.Enabled == false, metrics calls
// are accepted but discarded (no Prometheus registry is created).
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{Enabled: true, Path: "/metrics", Namespace: "agar"}
	}
	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	ns := config.Namespace
	if ns == "" {
		ns = "agar"
	}

	c := &Collector{
		config:   config,
		registry: registry,
		readOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "read_outcomes_total",
			Help:      "Completed reads by outcome (hit, partial_hit, miss).",
		}, []string{"outcome"}),
		allocatorAssignedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "allocator_blocks_assigned",
			Help:      "Total cached-block slots assigned by the most recent reallocation.",
		}),
		recipeRequestCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "recipe_requests_total",
			Help:      "Total recipe requests issued to the proxy.",
		}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "backend_latency_seconds",
			Help:      "Latency of per-region backend block fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"region"}),
		backendErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "backend_errors_total",
			Help:      "Failed per-region backend block fetches.",
		}, []string{"region"}),
	}

	for _, collector := range []prometheus.Collector{
		c.readOutcomeCounter, c.allocatorAssignedGauge, c.recipeRequestCounter,
		c.backendLatency, c.backendErrorCounter,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// RecordReadOutcome increments the outcome counter for a completed read.
func (c *Collector) RecordReadOutcome(outcome string) {
	if c.config == nil || !c.config.Enabled {
		return
	}
	c.readOutcomeCounter.WithLabelValues(outcome).Inc()
}

// RecordAllocatorAssignment records the total number of blocks assigned by
// the most recent reallocation.
func (c *Collector) RecordAllocatorAssignment(totalAssigned int) {
	c.mu.Lock()
	c.lastAssigned = totalAssigned
	c.mu.Unlock()

	if c.config == nil || !c.config.Enabled {
		return
	}
	c.allocatorAssignedGauge.Set(float64(totalAssigned))
}

// RecordRecipeRequest increments the recipe-request counter.
func (c *Collector) RecordRecipeRequest() {
	if c.config == nil || !c.config.Enabled {
		return
	}
	c.recipeRequestCounter.Inc()
}

// RecordBackendLatency records one per-region backend fetch's latency and
// success/failure.
func (c *Collector) RecordBackendLatency(region string, d time.Duration, success bool) {
	if c.config == nil || !c.config.Enabled {
		return
	}
	c.backendLatency.WithLabelValues(region).Observe(d.Seconds())
	if !success {
		c.backendErrorCounter.WithLabelValues(region).Inc()
	}
}

// GetMetrics returns a JSON-friendly snapshot for the admin /status surface.
func (c *Collector) GetMetrics() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]interface{}{
		"allocator_blocks_assigned": c.lastAssigned,
		"enabled":                   c.config != nil && c.config.Enabled,
	}
}

// Handler returns the Prometheus exposition handler for mounting on an
// external router (internal/admin mounts it at config.Path). Returns nil when
// metrics are disabled; callers must not register a nil handler.
func (c *Collector) Handler() http.Handler {
	if c.config == nil || !c.config.Enabled || c.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Path returns the configured exposition path, defaulting to /metrics.
func (c *Collector) Path() string {
	if c.config == nil || c.config.Path == "" {
		return "/metrics"
	}
	return c.config.Path
}
