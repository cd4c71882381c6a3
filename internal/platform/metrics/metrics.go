// Package metrics defines the Prometheus collectors of the task service and
// the HTTP middleware that feeds them. All methods are safe on a nil
// *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests that no route pattern matched.
const unmatchedRoute = "unmatched"

// Metrics holds the service collectors, registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	authRejections    prometheus.Counter
	rateLimitRejected *prometheus.CounterVec
	mailMessages      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskd_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskd_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		authRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taskd_auth_rejections_total",
				Help: "Requests rejected by bearer-token authentication.",
			},
		),
		rateLimitRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskd_ratelimit_rejected_total",
				Help: "Requests rejected by the rate limiter.",
			},
			[]string{"route"},
		),
		mailMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskd_mail_messages_total",
				Help: "Notification emails by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// AuthRejected counts one rejected authentication attempt.
func (m *Metrics) AuthRejected() {
	if m == nil {
		return
	}
	m.authRejections.Inc()
}

// RateLimited counts one request rejected on route.
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(route).Inc()
}

// MailOutcome counts one notification of kind with the given outcome.
func (m *Metrics) MailOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.mailMessages.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency. The route label is the
// matched chi pattern, so IDs in paths never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
