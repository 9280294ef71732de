// Package metrics exposes Prometheus collectors for the event scraper.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRunsTotal             *prometheus.CounterVec
	scrapeSourcesTotal          *prometheus.CounterVec
	scrapeEventsFoundTotal      prometheus.Counter
	scrapeEventsPersistedTotal  prometheus.Counter
	fetchAttemptsTotal          *prometheus.CounterVec
	fetchDurationSeconds        *prometheus.HistogramVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	scrapeSourceDurationSeconds prometheus.Histogram
	scrapeActiveRuns            prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total number of scrape runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeSourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_sources_total",
				Help: "Total number of sources processed, labeled by status.",
			},
			[]string{"status"},
		)

		scrapeEventsFoundTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_events_found_total",
				Help: "Total number of events extracted across all runs.",
			},
		)

		scrapeEventsPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_events_persisted_total",
				Help: "Total number of events written to storage after dedup.",
			},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_attempts_total",
				Help: "Total fetch attempts, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of fetch attempt latencies, labeled by strategy.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		scrapeSourceDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_source_duration_seconds",
				Help:    "Histogram of end-to-end per-source processing times.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		scrapeActiveRuns = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_runs",
				Help: "Number of scrape runs currently in flight.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(outcome string) {
	if scrapeRunsTotal == nil {
		return
	}
	scrapeRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSource records one processed source and its wall-clock duration.
func ObserveSource(status string, duration time.Duration) {
	if scrapeSourcesTotal == nil {
		return
	}
	scrapeSourcesTotal.WithLabelValues(status).Inc()
	scrapeSourceDurationSeconds.Observe(duration.Seconds())
}

// ObserveEvents records extraction and persistence counts for a run.
func ObserveEvents(found, persisted int) {
	if scrapeEventsFoundTotal == nil {
		return
	}
	if found > 0 {
		scrapeEventsFoundTotal.Add(float64(found))
	}
	if persisted > 0 {
		scrapeEventsPersistedTotal.Add(float64(persisted))
	}
}

// ObserveFetch records one strategy attempt and its latency.
func ObserveFetch(strategy, outcome string, duration time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveRuns increments the in-flight run gauge.
func IncActiveRuns() {
	if scrapeActiveRuns == nil {
		return
	}
	scrapeActiveRuns.Inc()
}

// DecActiveRuns decrements the in-flight run gauge.
func DecActiveRuns() {
	if scrapeActiveRuns == nil {
		return
	}
	scrapeActiveRuns.Dec()
}
