package observability

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

const metricsNamespace = "riskwarning"

// Behavior outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeTimedOut  = "timed_out"
)

// Persisted row actions.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionSkip   = "skip"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	behaviors          *prometheus.CounterVec
	retrievalFailures  *prometheus.CounterVec
	fallbackIndicators prometheus.Counter
	batchDuration      *prometheus.HistogramVec
	persistedRows      *prometheus.CounterVec
	assessments        *prometheus.CounterVec

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. Returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized", "namespace", metricsNamespace)
		}
	})
	return instance
}

// NewMetrics registers a fresh set of collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		behaviors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "behaviors_total",
			Help:      "Behaviors handled by the batch runner, by outcome.",
		}, []string{"outcome"}),
		retrievalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retrieval_failures_total",
			Help:      "Candidate retrieval failures, by target and kind.",
		}, []string{"target", "kind"}),
		fallbackIndicators: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fallback_indicators_total",
			Help:      "Indicators scored by the fallback formula.",
		}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a project batch, by final status.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		persistedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "indicator_results_total",
			Help:      "Indicator result rows written, by action.",
		}, []string{"action"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assessments_total",
			Help:      "Assessments reaching a terminal status.",
		}, []string{"status"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "api_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "api_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(
		m.behaviors,
		m.retrievalFailures,
		m.fallbackIndicators,
		m.batchDuration,
		m.persistedRows,
		m.assessments,
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDB exports database/sql pool stats for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) ObserveBehavior(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.behaviors.WithLabelValues(outcome).Add(float64(n))
}

// ObserveRetrievalFailure satisfies retrieval.FailureObserver.
func (m *Metrics) ObserveRetrievalFailure(target, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.retrievalFailures.WithLabelValues(target, kind).Inc()
}

func (m *Metrics) AddFallbackIndicators(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fallbackIndicators.Add(float64(n))
}

func (m *Metrics) ObserveBatch(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(status).Observe(dur.Seconds())
	m.assessments.WithLabelValues(status).Inc()
}

func (m *Metrics) ObservePersisted(inserted, updated, skipped int) {
	if m == nil {
		return
	}
	m.persistedRows.WithLabelValues(ActionInsert).Add(float64(inserted))
	m.persistedRows.WithLabelValues(ActionUpdate).Add(float64(updated))
	m.persistedRows.WithLabelValues(ActionSkip).Add(float64(skipped))
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}
