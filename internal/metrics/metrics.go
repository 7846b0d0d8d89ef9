// internal/metrics/metrics.go
//
// Prometheus collectors for the breach server.
// Collectors are registered on a caller-supplied registry so tests can use a
// fresh one per server.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "breach"

// Metrics bundles every collector the server updates.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	attempts      *prometheus.CounterVec
	hintsRevealed prometheus.Counter
	streamClients prometheus.Gauge
	sessions      prometheus.GaugeFunc

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. sessionCount feeds the live sessions
// gauge and may be nil.
func New(reg *prometheus.Registry, sessionCount func() int) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_attempts_total",
			Help:      "Decryption attempts by outcome",
		}, []string{"outcome"}),
		hintsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hints_revealed_total",
			Help:      "Hints revealed after repeated failures",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Open feed streams",
		}),
		gatherer: reg,
	}
	if sessionCount == nil {
		sessionCount = func() int { return 0 }
	}
	m.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Visitor sessions held in memory",
	}, func() float64 { return float64(sessionCount()) })

	reg.MustRegister(m.requests, m.duration, m.attempts, m.hintsRevealed, m.streamClients, m.sessions)
	return m
}

// ObserveAttempt records one decrypt submission.
func (m *Metrics) ObserveAttempt(correct, hintRevealed bool) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.attempts.WithLabelValues(outcome).Inc()
	if hintRevealed {
		m.hintsRevealed.Inc()
	}
}

// StreamOpened bumps the open stream gauge and returns the matching close func.
func (m *Metrics) StreamOpened() (closed func()) {
	m.streamClients.Inc()
	return m.streamClients.Dec
}

// Middleware counts requests and their latency, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
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
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
