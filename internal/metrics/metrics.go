// Package metrics exposes Prometheus collectors for the auditor service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	fetchAttemptsTotal         *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	searchRequestsTotal        *prometheus.CounterVec
	auditsTotal                *prometheus.CounterVec
	discoveryLeadsTotal        *prometheus.CounterVec
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_fetch_attempts_total",
				Help: "Page fetch attempts, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_fetch_duration_seconds",
				Help:    "Histogram of page fetch durations, labeled by strategy.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"strategy"},
		)

		searchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_search_requests_total",
				Help: "Business search requests, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_audits_total",
				Help: "Site audits, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		discoveryLeadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_discovery_leads_total",
				Help: "Leads scored during discovery, labeled by rating.",
			},
			[]string{"rating"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveFetch records one fetch strategy attempt.
func ObserveFetch(strategy, outcome string, duration time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveSearch records one search provider call.
func ObserveSearch(provider, outcome string) {
	if searchRequestsTotal == nil {
		return
	}
	searchRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveAudit records the outcome of an audit run.
func ObserveAudit(outcome string) {
	if auditsTotal == nil {
		return
	}
	auditsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLead records a scored discovery lead.
func ObserveLead(rating string) {
	if discoveryLeadsTotal == nil {
		return
	}
	discoveryLeadsTotal.WithLabelValues(rating).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	if rateLimitDelaysSeconds == nil {
		return
	}
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}
