// Package observability holds the Prometheus metrics of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements session.Metrics and credentials.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	SessionResolves    *prometheus.CounterVec
	BackgroundFailures *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewMetrics builds the collectors on a private registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionResolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_session_resolves_total",
				Help: "Session lookups by outcome",
			},
			[]string{"result"},
		),
		BackgroundFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_session_background_failures_total",
				Help: "Failed background renewals and cleanups",
			},
			[]string{"operation"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "account_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.SessionResolves,
		m.BackgroundFailures,
		m.Logins,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveResolve(result string) {
	m.SessionResolves.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBackgroundFailure(op string) {
	m.BackgroundFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency per route template.
// Unmatched routes share one label so ids never become label values.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
