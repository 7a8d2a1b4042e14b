package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "reaxar").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for fetch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the fetch duration histogram buckets.
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

func defaultConfig() Config {
	return Config{
		Namespace: "reaxar",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records registry, binding and fetch events.
type Collector struct {
	registrations  *prometheus.CounterVec
	lookupMisses   *prometheus.CounterVec
	registryResets *prometheus.CounterVec
	bindingsActive *prometheus.GaugeVec
	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
}

// New creates a Collector and registers its metrics.
// Registering two collectors against the same registry panics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registrations_total",
			Help:        "Total number of registry adds",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "outcome"}),

		lookupMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lookup_misses_total",
			Help:        "Total number of registry lookups for absent keys",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		registryResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_resets_total",
			Help:        "Total number of registry resets",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		bindingsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_active",
			Help:        "Number of attached UI bindings",
			ConstLabels: config.ConstLabels,
		}, []string{"source"}),

		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_total",
			Help:        "Total number of settled fetch cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"service", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Fetch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"service"}),
	}
}

// Added counts a registry add.
func (c *Collector) Added(kind, _ string, overwrote bool) {
	outcome := "added"
	if overwrote {
		outcome = "overwritten"
	}
	c.registrations.WithLabelValues(kind, outcome).Inc()
}

// Missed counts a lookup for an absent key. Keys are not used as labels.
func (c *Collector) Missed(kind, _ string) {
	c.lookupMisses.WithLabelValues(kind).Inc()
}

// Reset counts a registry reset.
func (c *Collector) Reset(kind string, _ int) {
	c.registryResets.WithLabelValues(kind).Inc()
}

// BindingOpened increments the active binding gauge for source.
func (c *Collector) BindingOpened(source string) {
	c.bindingsActive.WithLabelValues(source).Inc()
}

// BindingClosed decrements the active binding gauge for source.
func (c *Collector) BindingClosed(source string) {
	c.bindingsActive.WithLabelValues(source).Dec()
}

// FetchFinished counts a settled fetch. Duration is only observed for
// cycles that actually ran the service method.
func (c *Collector) FetchFinished(service, outcome string, elapsed time.Duration) {
	c.fetchTotal.WithLabelValues(service, outcome).Inc()
	if outcome != "not_found" {
		c.fetchDuration.WithLabelValues(service).Observe(elapsed.Seconds())
	}
}
