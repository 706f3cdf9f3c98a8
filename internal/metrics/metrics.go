// Package metrics provides Prometheus instrumentation for the hedge engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts computations served, partitioned by operation.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedge_quotes_total",
		Help: "Total number of pricing and hedging computations served",
	}, []string{"operation"})

	// QuoteErrors counts rejected computations by operation.
	QuoteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedge_quote_errors_total",
		Help: "Computations rejected for invalid input",
	}, []string{"operation"})

	// SolverIterations tracks bisection iterations per strike search.
	SolverIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hedge_solver_iterations",
		Help:    "Bisection iterations per strike search",
		Buckets: []float64{1, 2, 4, 6, 8, 10, 12, 14, 16, 20, 30, 50, 100},
	}, []string{"operation"})

	// SolverOutcomes counts strike searches by whether they converged.
	SolverOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedge_solver_outcomes_total",
		Help: "Strike searches by convergence outcome",
	}, []string{"operation", "converged"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedge_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// StoreErrors counts quote store failures by operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedge_store_errors_total",
		Help: "Quote store failures",
	}, []string{"op"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedge_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hedge_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveSolve records one strike search.
func ObserveSolve(operation string, iterations int, converged bool) {
	SolverIterations.WithLabelValues(operation).Observe(float64(iterations))
	SolverOutcomes.WithLabelValues(operation, strconv.FormatBool(converged)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps quote IDs out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
