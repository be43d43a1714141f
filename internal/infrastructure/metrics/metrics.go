package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the sync core. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	mutationsTotal     *prometheus.CounterVec
	mutationFailures   *prometheus.CounterVec
	remoteFallbacks    *prometheus.CounterVec
	cacheWriteFailures prometheus.Counter
	malformedCache     prometheus.Counter
	busPublishes       *prometheus.CounterVec
	busDeliveries      *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_mutations_total",
				Help: "Successful task lifecycle operations by source tag",
			},
			[]string{"source"},
		),
		mutationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_mutation_failures_total",
				Help: "Rejected or failed task lifecycle operations by source tag",
			},
			[]string{"source"},
		),
		remoteFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_remote_failures_total",
				Help: "Remote store calls absorbed by the local cache fallback",
			},
			[]string{"operation"},
		),
		cacheWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasksync_cache_write_failures_total",
			Help: "Local cache writes that failed",
		}),
		malformedCache: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasksync_cache_malformed_total",
			Help: "Cache reads that failed to parse and were reset",
		}),
		busPublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_bus_publishes_total",
				Help: "Notification bus publishes by topic",
			},
			[]string{"topic"},
		),
		busDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_bus_deliveries_total",
				Help: "Listener invocations by topic",
			},
			[]string{"topic"},
		),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.mutationsTotal,
		m.mutationFailures,
		m.remoteFallbacks,
		m.cacheWriteFailures,
		m.malformedCache,
		m.busPublishes,
		m.busDeliveries,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) MutationSucceeded(source string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) MutationFailed(source string) {
	if m == nil {
		return
	}
	m.mutationFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) RemoteFailure(operation string) {
	if m == nil {
		return
	}
	m.remoteFallbacks.WithLabelValues(operation).Inc()
}

func (m *Metrics) CacheWriteFailure() {
	if m == nil {
		return
	}
	m.cacheWriteFailures.Inc()
}

func (m *Metrics) MalformedCache() {
	if m == nil {
		return
	}
	m.malformedCache.Inc()
}

// ObservePublish matches the bus publish hook signature
func (m *Metrics) ObservePublish(topic string, listeners int) {
	if m == nil {
		return
	}
	m.busPublishes.WithLabelValues(topic).Inc()
	m.busDeliveries.WithLabelValues(topic).Add(float64(listeners))
}
