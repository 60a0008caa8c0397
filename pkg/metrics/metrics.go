// Package metrics exposes Prometheus collectors for the firebolt runtime.
//
// A nil *Metrics is valid and records nothing, so components take one
// optionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "firebolt").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the runtime collectors.
type Metrics struct {
	navigations        *prometheus.CounterVec
	navigationDuration prometheus.Histogram
	moduleLoads        *prometheus.CounterVec
	resources          *prometheus.CounterVec
	resourceDuration   prometheus.Histogram
	resourceHits       prometheus.Counter
	headSyncs          prometheus.Counter
	renders            *prometheus.CounterVec
	renderDuration     prometheus.Histogram
}

// New registers the collectors.
//
// Metrics collected:
//   - firebolt_navigations_total: navigations by outcome (committed, cancelled, failed, unchanged)
//   - firebolt_navigation_duration_seconds: time from URL change to commit
//   - firebolt_module_loads_total: route module loads by status
//   - firebolt_resources_total: resource computations by status
//   - firebolt_resource_duration_seconds: resource computation duration
//   - firebolt_resource_hits_total: resource accesses served by an existing entry
//   - firebolt_head_syncs_total: head patches pushed to the document
//   - firebolt_renders_total: server renders by status code class
//   - firebolt_render_duration_seconds: server render duration
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace: "firebolt",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "navigations_total",
			Help:        "Total number of browser URL changes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		navigationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "navigation_duration_seconds",
			Help:        "Time from URL change to committed location in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		moduleLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "module_loads_total",
			Help:        "Total number of route module loads by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		resources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "resources_total",
			Help:        "Total number of resource computations by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		resourceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "resource_duration_seconds",
			Help:        "Resource computation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		resourceHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "resource_hits_total",
			Help:        "Total number of resource accesses served by an existing entry",
			ConstLabels: config.ConstLabels,
		}),

		headSyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "head_syncs_total",
			Help:        "Total number of head patches pushed to the document",
			ConstLabels: config.ConstLabels,
		}),

		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "renders_total",
			Help:        "Total number of server renders by status class",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "render_duration_seconds",
			Help:        "Server render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Navigation outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeUnchanged = "unchanged"
)

// RecordNavigation records a navigation outcome. d is only observed for
// committed navigations.
func (m *Metrics) RecordNavigation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCommitted {
		m.navigationDuration.Observe(d.Seconds())
	}
}

// RecordModuleLoad records a route module load.
func (m *Metrics) RecordModuleLoad(err error) {
	if m == nil {
		return
	}
	m.moduleLoads.WithLabelValues(status(err)).Inc()
}

// RecordResource records a finished resource computation.
func (m *Metrics) RecordResource(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.resources.WithLabelValues(status(err)).Inc()
	m.resourceDuration.Observe(d.Seconds())
}

// RecordResourceHit records an access served by an existing entry.
func (m *Metrics) RecordResourceHit() {
	if m == nil {
		return
	}
	m.resourceHits.Inc()
}

// RecordHeadSync records patches pushed to the document head.
func (m *Metrics) RecordHeadSync(patches int) {
	if m == nil {
		return
	}
	m.headSyncs.Add(float64(patches))
}

// RecordRender records a server render.
func (m *Metrics) RecordRender(code int, d time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(statusClass(code)).Inc()
	m.renderDuration.Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
