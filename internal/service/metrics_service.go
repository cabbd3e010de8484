package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the roster cache
// and result writes. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheLookups        *prometheus.CounterVec
	resultsWritten      *prometheus.CounterVec
	submissionsRejected *prometheus.CounterVec
	complaintsResolved  prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_cache_latency_seconds",
		Help:    "Latency of roster cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_cache_write_seconds",
		Help:    "Latency of roster cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_cache_lookups_total",
		Help: "Roster cache lookups by result",
	}, []string{"result"})

	resultsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_written_total",
		Help: "Result rows upserted, by outcome",
	}, []string{"outcome"})

	submissionsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "result_submissions_rejected_total",
		Help: "Result submissions rejected before storage, by action and error code",
	}, []string{"action", "code"})

	complaintsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "complaints_resolved_total",
		Help: "Complaints transitioned to resolved",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		resultsWritten, submissionsRejected, complaintsResolved, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheLookups:        cacheLookups,
		resultsWritten:      resultsWritten,
		submissionsRejected: submissionsRejected,
		complaintsResolved:  complaintsResolved,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a roster cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheLookups.WithLabelValues(label).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordResultsWritten counts upsert outcomes of a submission.
func (m *MetricsService) RecordResultsWritten(summary models.UpsertSummary) {
	if m == nil {
		return
	}
	m.resultsWritten.WithLabelValues(string(models.UpsertCreated)).Add(float64(summary.Created))
	m.resultsWritten.WithLabelValues(string(models.UpsertUpdated)).Add(float64(summary.Updated))
}

// RecordRejectedSubmission counts a submission refused before any write.
func (m *MetricsService) RecordRejectedSubmission(action, code string) {
	if m == nil {
		return
	}
	m.submissionsRejected.WithLabelValues(action, code).Inc()
}

// RecordComplaintResolved counts a resolved complaint.
func (m *MetricsService) RecordComplaintResolved() {
	if m == nil {
		return
	}
	m.complaintsResolved.Inc()
}
