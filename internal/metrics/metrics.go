// Package metrics exports lifecycle and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"festivalhub/internal/apperr"
)

// Recorder receives lifecycle outcomes from the festival and performance engines.
type Recorder interface {
	// Transition records an accepted state change of entity to state.
	Transition(entity, operation, state string)
	// Refused records an operation rejected with the given failure kind.
	Refused(entity, operation string, kind apperr.Kind)
}

// Nop discards everything.
var Nop Recorder = nop{}

type nop struct{}

func (nop) Transition(string, string, string)   {}
func (nop) Refused(string, string, apperr.Kind) {}

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	transitions  *prometheus.CounterVec
	refusals     *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ Recorder = (*Metrics)(nil)

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "festivalhub",
			Name:      "transitions_total",
			Help:      "Accepted lifecycle transitions by entity, operation, and resulting state.",
		}, []string{"entity", "operation", "state"}),
		refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "festivalhub",
			Name:      "refusals_total",
			Help:      "Lifecycle operations refused by a guard, by failure kind.",
		}, []string{"entity", "operation", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "festivalhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "festivalhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		m.transitions,
		m.refusals,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Transition implements Recorder.
func (m *Metrics) Transition(entity, operation, state string) {
	m.transitions.WithLabelValues(entity, operation, state).Inc()
}

// Refused implements Recorder.
func (m *Metrics) Refused(entity, operation string, kind apperr.Kind) {
	m.refusals.WithLabelValues(entity, operation, string(kind)).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests per mux route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
