// Package metrics exposes the Prometheus instrumentation of the session
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the exporter.
type Config struct {
	Namespace      string
	LatencyBuckets []float64
}

// DefaultConfig returns the production configuration. The latency buckets
// stretch far to the right because a turn includes model inference.
func DefaultConfig() Config {
	return Config{
		Namespace:      "asklly",
		LatencyBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}
}

// Exporter owns the metric families and their registry.
type Exporter struct {
	registry *prometheus.Registry

	activeSessions  prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsClosed  *prometheus.CounterVec

	queries          *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	routingDecisions *prometheus.CounterVec
}

// NewExporter creates an Exporter with its own registry.
func NewExporter(cfg Config) *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions.",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created since start.",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions closed since start, by reason.",
		}, []string{"reason"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "queries_total",
			Help:      "Queries processed, by agent and outcome.",
		}, []string{"agent", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "query_duration_seconds",
			Help:      "Wall time of one query turn, by agent.",
			Buckets:   cfg.LatencyBuckets,
		}, []string{"agent"}),
		routingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "routing_decisions_total",
			Help:      "Router selections, by agent.",
		}, []string{"agent"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		e.activeSessions,
		e.sessionsCreated,
		e.sessionsClosed,
		e.queries,
		e.queryDuration,
		e.routingDecisions,
	)
	return e
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// SessionOpened records a new live session.
func (e *Exporter) SessionOpened() {
	if e == nil {
		return
	}
	e.sessionsCreated.Inc()
	e.activeSessions.Inc()
}

// SessionClosed records a session teardown with its reason, one of
// "api", "expired" or "shutdown".
func (e *Exporter) SessionClosed(reason string) {
	if e == nil {
		return
	}
	e.sessionsClosed.WithLabelValues(reason).Inc()
	e.activeSessions.Dec()
}

// ObserveQuery records one finished query turn.
func (e *Exporter) ObserveQuery(agent, status string, seconds float64) {
	if e == nil {
		return
	}
	e.queries.WithLabelValues(agent, status).Inc()
	e.queryDuration.WithLabelValues(agent).Observe(seconds)
}

// RoutingDecision records which agent the router picked.
func (e *Exporter) RoutingDecision(agent string) {
	if e == nil {
		return
	}
	e.routingDecisions.WithLabelValues(agent).Inc()
}
