package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/polla/internal/platform/resilience"
)

const metricsNamespace = "polla"

// Metrics owns a private prometheus registry. It satisfies usecase.SyncMetrics
// and feeds circuit breaker and HTTP request series.
type Metrics struct {
	registry *prometheus.Registry

	syncOutcomes     *prometheus.CounterVec
	lockOutcomes     *prometheus.CounterVec
	finalizeOutcomes *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	httpRequests     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "match_sync",
			Name:      "outcomes_total",
			Help:      "Match score reads by how the snapshot was served.",
		}, []string{"outcome"}),
		lockOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "match_sync",
			Name:      "lock_outcomes_total",
			Help:      "Per-match refresh lock attempts by result.",
		}, []string{"outcome"}),
		finalizeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pool",
			Name:      "finalization_outcomes_total",
			Help:      "Pool finalization checks by result.",
		}, []string{"outcome"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "dependency",
			Name:      "circuit_open",
			Help:      "1 when the dependency circuit breaker is open, 0.5 when half open, 0 when closed.",
		}, []string{"dependency"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncOutcomes,
		m.lockOutcomes,
		m.finalizeOutcomes,
		m.circuitState,
		m.httpRequests,
	)
	return m
}

func (m *Metrics) ObserveSync(outcome string) {
	m.syncOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLock(outcome string) {
	m.lockOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFinalization(outcome string) {
	m.finalizeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// CircuitListener exports breaker transitions as the circuit_open gauge.
func (m *Metrics) CircuitListener() resilience.StateListener {
	return func(dependency string, state resilience.CircuitState) {
		value := 0.0
		switch state {
		case resilience.CircuitStateOpen:
			value = 1
		case resilience.CircuitStateHalfOpen:
			value = 0.5
		}
		m.circuitState.WithLabelValues(dependency).Set(value)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
