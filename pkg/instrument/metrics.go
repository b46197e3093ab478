package instrument

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/silo/pkg/silo"
)

// Dispatch outcomes used as the "outcome" label.
const (
	OutcomeChanged = "changed"
	OutcomeNoop    = "noop"
	OutcomePanic   = "panic"
)

// MetricsConfig configures the Prometheus instrument.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "silo").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: exponential from 1µs to ~0.26s.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrument.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "silo",
		Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a silo.Instrument recording Prometheus metrics:
//   - silo_dispatch_total: dispatches by silo, action and outcome
//   - silo_dispatch_duration_seconds: dispatch duration by silo and action
//   - silo_notifications_total: subscriber calls by silo
//   - silo_protocol_violations_total: violations by silo and code
type Metrics struct {
	dispatchTotal      *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	violationsTotal    *prometheus.CounterVec
}

var _ silo.Instrument = (*Metrics)(nil)

type metricsKey struct {
	registry  prometheus.Registerer
	namespace string
	subsystem string
}

// registered caches metrics per registry so that creating the instrument more
// than once does not register duplicate collectors.
var (
	registered   = make(map[metricsKey]*Metrics)
	registeredMu sync.Mutex
)

// Prometheus creates an instrument that collects Prometheus metrics for every
// dispatch of the silos it is attached to. Calls with the same registry,
// namespace and subsystem share one set of collectors, and the first call's
// buckets and const labels win; later options for the same key are ignored.
//
// Example:
//
//	metrics := instrument.Prometheus(instrument.WithNamespace("game"))
//	stats := silo.New(Stats{}, silo.WithInstrument(metrics))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	key := metricsKey{config.Registry, config.Namespace, config.Subsystem}

	registeredMu.Lock()
	defer registeredMu.Unlock()
	if m, ok := registered[key]; ok {
		return m
	}
	m := initMetrics(config)
	registered[key] = m
	return m
}

// initMetrics registers the collectors.
func initMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_total",
			Help:        "Total number of silo action dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"silo", "action", "outcome"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Dispatch duration, modifier and notification fan-out, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"silo", "action"}),

		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subscriber calls after committed changes",
			ConstLabels: config.ConstLabels,
		}, []string{"silo"}),

		violationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "protocol_violations_total",
			Help:        "Total number of dispatches aborted by a protocol violation",
			ConstLabels: config.ConstLabels,
		}, []string{"silo", "code"}),
	}
}

// StartDispatch implements silo.Instrument.
func (m *Metrics) StartDispatch(info silo.DispatchInfo) func(silo.DispatchResult) {
	return func(res silo.DispatchResult) {
		m.dispatchDuration.WithLabelValues(info.Silo, info.Action).Observe(res.Duration.Seconds())

		outcome := OutcomeNoop
		switch {
		case res.Panic != nil:
			outcome = OutcomePanic
			// A violation raised by another silo is counted there, not here.
			if v, ok := silo.AsViolation(res.Panic); ok && v.Silo == info.Silo {
				m.violationsTotal.WithLabelValues(info.Silo, v.Code).Inc()
			}
		case res.Changed:
			outcome = OutcomeChanged
		}
		m.dispatchTotal.WithLabelValues(info.Silo, info.Action, outcome).Inc()

		if res.Subscribers > 0 {
			m.notificationsTotal.WithLabelValues(info.Silo).Add(float64(res.Subscribers))
		}
	}
}
