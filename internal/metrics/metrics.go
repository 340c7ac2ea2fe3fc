// Package metrics exposes the Prometheus collectors of the indexer.
// Every recorder method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legal_indexer"

// Fetch outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeCacheHit     = "cache_hit"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeStatus       = "status"
	OutcomeTransport    = "transport"
)

// Unit results.
const (
	UnitStored    = "stored"
	UnitUnchanged = "unchanged"
	UnitSkipped   = "skipped"
	UnitFailed    = "failed"
)

// Metrics holds all indexer collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Fetch client metrics
	FetchRequests *prometheus.CounterVec
	FetchWait     *prometheus.HistogramVec

	// Backend store metrics
	BackendCalls *prometheus.CounterVec

	// Orchestrator metrics
	Units       *prometheus.CounterVec
	Sections    *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	LastRun     *prometheus.GaugeVec
}

// New creates the collectors together with Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}
	factory := promauto.With(reg)
	initFetchMetrics(m, factory)
	initBackendMetrics(m, factory)
	initRunMetrics(m, factory)
	return m
}

func initFetchMetrics(m *Metrics, factory promauto.Factory) {
	m.FetchRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_requests_total",
		Help:      "Fetch client requests by client and outcome",
	}, []string{"client", "outcome"})

	m.FetchWait = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_window_wait_seconds",
		Help:      "Time spent waiting for rate window capacity",
		Buckets:   []float64{0, 0.01, 0.1, 1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"client"})
}

func initBackendMetrics(m *Metrics, factory promauto.Factory) {
	m.BackendCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_calls_total",
		Help:      "Backend store calls by corpus, operation and result",
	}, []string{"corpus", "operation", "result"})
}

func initRunMetrics(m *Metrics, factory promauto.Factory) {
	m.Units = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_total",
		Help:      "Units handled by indexing runs, by result",
	}, []string{"corpus", "result"})

	m.Sections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sections_stored_total",
		Help:      "Sections stored in the backend",
	}, []string{"corpus"})

	m.Runs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Indexing runs by corpus, mode and final status",
	}, []string{"corpus", "mode", "status"})

	m.RunDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Indexing run duration",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"corpus", "mode"})

	m.LastRun = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last finished run",
	}, []string{"corpus", "mode"})
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordFetch counts one fetch client request.
func (m *Metrics) RecordFetch(client, outcome string) {
	if m == nil {
		return
	}
	m.FetchRequests.WithLabelValues(client, outcome).Inc()
}

// ObserveWait records time spent blocked on the rate window.
func (m *Metrics) ObserveWait(client string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchWait.WithLabelValues(client).Observe(d.Seconds())
}

// RecordBackendCall counts one backend store call.
func (m *Metrics) RecordBackendCall(corpus, operation string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.BackendCalls.WithLabelValues(corpus, operation, result).Inc()
}

// RecordUnit counts one unit outcome.
func (m *Metrics) RecordUnit(corpus, result string) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(corpus, result).Inc()
}

// RecordSections counts stored sections.
func (m *Metrics) RecordSections(corpus string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Sections.WithLabelValues(corpus).Add(float64(n))
}

// RecordRun records a finished run. A zero finished time leaves the
// last-run gauge untouched.
func (m *Metrics) RecordRun(corpus, mode, status string, d time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(corpus, mode, status).Inc()
	m.RunDuration.WithLabelValues(corpus, mode).Observe(d.Seconds())
	if !finished.IsZero() {
		m.LastRun.WithLabelValues(corpus, mode).Set(float64(finished.Unix()))
	}
}
