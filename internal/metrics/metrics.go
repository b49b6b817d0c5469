// Package metrics exposes Prometheus collectors for sessions and the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted   *prometheus.CounterVec
	nodeExecutions    *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questline_sessions_started_total",
				Help: "Total number of sessions started",
			},
			[]string{"template_id"},
		),
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questline_node_executions_total",
				Help: "Total number of node executions",
			},
			[]string{"template_id", "node_id"},
		),
		sessionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questline_sessions_completed_total",
				Help: "Total number of sessions that reached a terminal node",
			},
			[]string{"template_id"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questline_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "questline_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.nodeExecutions,
		m.sessionsCompleted,
		m.requests,
		m.requestDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records session lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, ev *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(strconv.Itoa(ev.TemplateID)).Inc()
		},
		OnNodeExecuted: func(_ context.Context, ev *domain.SessionEvent) {
			m.nodeExecutions.WithLabelValues(strconv.Itoa(ev.TemplateID), strconv.Itoa(ev.NodeID)).Inc()
		},
		OnSessionComplete: func(_ context.Context, ev *domain.SessionEvent) {
			m.sessionsCompleted.WithLabelValues(strconv.Itoa(ev.TemplateID)).Inc()
		},
	}
}

// Middleware records request counts and latency, labelled by chi route pattern
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
