// Package metrics exposes Prometheus collectors for the election guide service.
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
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	upstreamRequestsTotal      *prometheus.CounterVec
	upstreamDurationSeconds    *prometheus.HistogramVec
	upstreamRetriesTotal       *prometheus.CounterVec
	cacheLookupsTotal          *prometheus.CounterVec
	newsScrapesTotal           *prometheus.CounterVec
	lookupsTotal               *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electionguide_upstream_requests_total",
				Help: "Total outbound requests to external services, labeled by service and outcome.",
			},
			[]string{"service", "outcome"},
		)

		upstreamDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "electionguide_upstream_duration_seconds",
				Help:    "Histogram of outbound request latencies, labeled by service.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"service"},
		)

		upstreamRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electionguide_upstream_retries_total",
				Help: "Total retried outbound requests, labeled by service.",
			},
			[]string{"service"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electionguide_cache_lookups_total",
				Help: "Total response cache lookups, labeled by result (hit or miss).",
			},
			[]string{"result"},
		)

		newsScrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electionguide_news_scrapes_total",
				Help: "Total newsroom scrapes, labeled by fetch path and status.",
			},
			[]string{"path", "status"},
		)

		lookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electionguide_lookups_total",
				Help: "Total address lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "electionguide_rate_limit_delays_seconds",
				Help:    "Histogram of outbound rate limit wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"service"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveUpstream records one outbound call to service.
func ObserveUpstream(service, outcome string, duration time.Duration) {
	Init()
	upstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	upstreamDurationSeconds.WithLabelValues(service).Observe(duration.Seconds())
}

// ObserveUpstreamRetry counts a retried outbound call.
func ObserveUpstreamRetry(service string) {
	Init()
	upstreamRetriesTotal.WithLabelValues(service).Inc()
}

// ObserveCache records a cache hit or miss.
func ObserveCache(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveNewsScrape records a newsroom scrape; path is "probe" or "headless".
func ObserveNewsScrape(path, status string) {
	Init()
	newsScrapesTotal.WithLabelValues(path, status).Inc()
}

// ObserveLookup records the outcome of an address lookup.
func ObserveLookup(outcome string) {
	Init()
	lookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(service string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(service).Observe(duration.Seconds())
}
