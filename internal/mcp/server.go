// Package mcp exposes the session manager over the Model Context
// Protocol: a streamable HTTP endpoint with token auth, rate limiting,
// and Prometheus metrics, plus health endpoints for probes.
package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/s9gf4ult/haskell-mode/internal/auth"
	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/history"
	"github.com/s9gf4ult/haskell-mode/internal/logger"
	"github.com/s9gf4ult/haskell-mode/internal/metrics"
	"github.com/s9gf4ult/haskell-mode/internal/schedule"
	"github.com/s9gf4ult/haskell-mode/internal/session"
)

// Version is the server version reported over MCP.
const Version = "0.1.0"

const (
	// limiterCleanupInterval is how often stale rate-limiter entries are
	// evicted; unauthenticated requests key the limiter by remote address.
	limiterCleanupInterval = 10 * time.Minute
	limiterMaxIdle         = 30 * time.Minute
)

// generateRequestID creates a unique request identifier
func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Server wraps the MCP server with the session manager and stores.
type Server struct {
	cfg            *config.Config
	sessionMgr     *session.Manager
	histStore      *history.Store // nil when history is disabled
	authStore      *auth.Store    // nil when auth is disabled
	authDisabled   bool
	scheduleRunner *schedule.Runner // nil when no schedules configured
	rateLimiter    *auth.RateLimiter
	mcpServer      *mcp_sdk.Server
	registry       *Registry

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sessionMgr *session.Manager, histStore *history.Store, authStore *auth.Store) (*Server, error) {
	s := &Server{
		cfg:          cfg,
		sessionMgr:   sessionMgr,
		histStore:    histStore,
		authStore:    authStore,
		authDisabled: cfg.Server.AuthDisabled || authStore == nil,
		rateLimiter:  auth.DefaultRateLimiter(),
		registry:     NewRegistry(),
		stopCleanup:  make(chan struct{}),
	}

	if len(cfg.Schedules) > 0 {
		runner, err := schedule.NewRunner(cfg.Schedules, s.executeScheduleEntry)
		if err != nil {
			return nil, err
		}
		s.scheduleRunner = runner
	}

	s.registerAllTools(s.registry)
	return s, nil
}

// GetRegistry returns the tool registry
func (s *Server) GetRegistry() *Registry {
	return s.registry
}

// executeScheduleEntry is called by the schedule runner to run one entry
// against its target session.
func (s *Server) executeScheduleEntry(ctx context.Context, entry *schedule.Entry) (string, error) {
	return s.sessionMgr.Eval(ctx, entry.Session, entry.Command)
}

// Close shuts down the server and every running session.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	if s.scheduleRunner != nil {
		s.scheduleRunner.Stop()
	}
	s.sessionMgr.Close()
}

// cleanupLoop evicts idle rate-limiter entries until Close.
func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup(limiterMaxIdle)
		}
	}
}

// Handler assembles the full HTTP handler: MCP streamable transport
// wrapped in request-ID logging, auth, rate limiting, and metrics, plus
// the unauthenticated health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	s.mcpServer = mcp_sdk.NewServer(&mcp_sdk.Implementation{
		Name:    "haskell-mode",
		Version: Version,
	}, nil)
	s.registry.RegisterWithMCPServer(s.mcpServer)

	// Streamable transport with SSE stream resumption
	mcpHandler := mcp_sdk.NewStreamableHTTPHandler(func(req *http.Request) *mcp_sdk.Server {
		return s.mcpServer
	}, &mcp_sdk.StreamableHTTPOptions{
		EventStore: mcp_sdk.NewMemoryEventStore(nil),
	})

	loggingHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		logger.Info("HTTP %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mcpHandler.ServeHTTP(w, r)
	})

	var handler http.Handler = loggingHandler
	if !s.authDisabled {
		handler = auth.Middleware(s.authStore)(handler)
	}
	handler = auth.RateLimitMiddleware(s.rateLimiter)(handler)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealthCheck)
	mux.HandleFunc("/ready", s.handleReadinessCheck)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/mcp", metrics.Middleware(handler))
	mux.Handle("/mcp/", metrics.Middleware(handler))
	return mux
}

// Serve starts the MCP HTTP server and blocks.
func (s *Server) Serve(addr string) error {
	if s.scheduleRunner != nil {
		s.scheduleRunner.Start()
	}
	go s.cleanupLoop()

	handler := s.Handler()

	logger.Info("haskell-mode MCP server listening on %s", addr)
	logger.Info("Health check: http://%s/health", addr)
	logger.Info("Metrics: http://%s/metrics", addr)
	return http.ListenAndServe(addr, handler)
}

// handleHealthCheck is a basic liveness check
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleReadinessCheck verifies the server can serve requests
func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
