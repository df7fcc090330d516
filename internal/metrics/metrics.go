// Package metrics holds the Prometheus collectors the service records into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheError    = "error"
	CacheBypassed = "refresh"
)

// Metrics contains the custom collectors.  All record methods are safe on a
// nil receiver so components can run without metrics in tests.
type Metrics struct {
	CacheRequests      *prometheus.CounterVec
	CacheFlushFailures prometheus.Counter
	AuthAttempts       *prometheus.CounterVec
	RateLimited        *prometheus.CounterVec
}

// New creates the custom collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_directory_cache_requests_total",
				Help: "Directory listing lookups by cache result",
			},
			[]string{"result"},
		),
		CacheFlushFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "salon_directory_cache_flush_failures_total",
				Help: "Directory cache invalidations that failed",
			},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_auth_attempts_total",
				Help: "Credential flow outcomes by flow",
			},
			[]string{"flow", "outcome"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_rate_limited_total",
				Help: "Requests rejected by the rate limiter by route",
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(m.CacheRequests)
	reg.MustRegister(m.CacheFlushFailures)
	reg.MustRegister(m.AuthAttempts)
	reg.MustRegister(m.RateLimited)

	return m
}

// NewRegistry returns a registry with the Go and process collectors and the
// custom metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, New(registry)
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) FlushFailed() {
	if m == nil {
		return
	}
	m.CacheFlushFailures.Inc()
}

func (m *Metrics) Auth(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) Limited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}
