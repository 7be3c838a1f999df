package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PermissionDecisionsTotal *prometheus.CounterVec

	AccessCacheHitsTotal   *prometheus.CounterVec
	AccessCacheMissesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskapi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskapi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PermissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskapi_permission_decisions_total",
				Help: "Permission checks enforced by services, by scope, action and outcome",
			},
			[]string{"scope", "action", "outcome"},
		),
		AccessCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskapi_access_cache_hits_total",
				Help: "Membership snapshot cache hits",
			},
			[]string{"kind"},
		),
		AccessCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskapi_access_cache_misses_total",
				Help: "Membership snapshot cache misses",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionDecisionsTotal,
		m.AccessCacheHitsTotal,
		m.AccessCacheMissesTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one enforced permission check. Nil receivers are ignored.
func (m *Metrics) RecordDecision(scope, action string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.PermissionDecisionsTotal.WithLabelValues(scope, action, outcome).Inc()
}

// RecordCacheLookup counts a snapshot cache hit or miss. Nil receivers are ignored.
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.AccessCacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.AccessCacheMissesTotal.WithLabelValues(kind).Inc()
}
