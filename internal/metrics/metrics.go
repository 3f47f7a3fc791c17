package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haskell_mode_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveSessions tracks currently running REPL sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "haskell_mode_active_sessions",
			Help: "Number of running REPL sessions",
		},
	)

	// CommandsTotal counts synchronous commands executed per session
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_commands_total",
			Help: "Total number of commands executed against REPL sessions",
		},
		[]string{"session", "status"},
	)

	// CommandDuration tracks how long commands take to complete
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haskell_mode_command_duration_seconds",
			Help:    "Command round-trip duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"session"},
	)

	// ResponseBytes counts response payload sizes per session
	ResponseBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_response_bytes_total",
			Help: "Total response bytes delivered to command completions",
		},
		[]string{"session"},
	)

	// ProcessRestarts counts intentional session restarts
	ProcessRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_process_restarts_total",
			Help: "Total number of REPL process restarts",
		},
		[]string{"session"},
	)

	// ProcessEnded counts unexpected process terminations
	ProcessEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_process_ended_total",
			Help: "Total number of unexpected REPL process terminations",
		},
		[]string{"session"},
	)

	// ToolCalls tracks MCP tool invocations
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haskell_mode_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/health", "/ready", "/mcp", "/mcp/", "/metrics":
		return path
	default:
		if len(path) > 5 && path[:5] == "/mcp/" {
			return "/mcp"
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
