// Package metrics holds the prometheus collectors for the auth service and
// the mail worker. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	logins         *prometheus.CounterVec
	sessionChecks  *prometheus.CounterVec
	resetRequests  *prometheus.CounterVec
	resetsSwept    prometheus.Counter
	mailDeliveries *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a dedicated registry so tests and multiple binaries never
// collide on the global one.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_auth_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		sessionChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_auth_session_checks_total",
				Help: "Session token checks by outcome",
			},
			[]string{"outcome"},
		),
		resetRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_auth_reset_requests_total",
				Help: "Password reset requests by outcome",
			},
			[]string{"outcome"},
		),
		resetsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "natours_auth_reset_tokens_swept_total",
				Help: "Expired reset tokens cleared by the sweeper",
			},
		),
		mailDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_mail_deliveries_total",
				Help: "Mail deliveries by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "natours_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.logins,
		m.sessionChecks,
		m.resetRequests,
		m.resetsSwept,
		m.mailDeliveries,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionCheck(outcome string) {
	if m == nil {
		return
	}
	m.sessionChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResetRequest(outcome string) {
	if m == nil {
		return
	}
	m.resetRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResetsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.resetsSwept.Add(float64(n))
}

func (m *Metrics) MailDelivery(kind, outcome string) {
	if m == nil {
		return
	}
	m.mailDeliveries.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
