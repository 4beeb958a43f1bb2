// Package admin provides the HTTP surface for health, status, metrics, and
// the on-demand reallocation trigger.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agar-cache/agar/internal/allocator"
	"github.com/agar-cache/agar/internal/metrics"
	"github.com/agar-cache/agar/pkg/health"
	"github.com/agar-cache/agar/pkg/status"
	"github.com/agar-cache/agar/pkg/utils"
)

// Server exposes the proxy's full admin HTTP surface: /health, /status,
// /metrics (Prometheus exposition), and POST /admin/reallocate.
type Server struct {
	httpServer    *http.Server
	statusTracker *status.Tracker
	healthTracker *health.Tracker
	alloc         *allocator.Allocator
	logger        *utils.StructuredLogger
	config        Config
}

// Config configures the admin server.
type Config struct {
	Address      string        `yaml:"address" json:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// DefaultConfig returns sensible defaults for the admin server.
func DefaultConfig() Config {
	return Config{
		Address:      "127.0.0.1:9192",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// New builds an admin server wired to the given trackers and allocator. If
// metricsCollector is non-nil and enabled, its Prometheus exposition handler
// is mounted at its configured path (default /metrics) alongside the rest of
// the admin surface.
func New(config Config, statusTracker *status.Tracker, healthTracker *health.Tracker, alloc *allocator.Allocator, metricsCollector *metrics.Collector, logger *utils.StructuredLogger) *Server {
	s := &Server{
		statusTracker: statusTracker,
		healthTracker: healthTracker,
		alloc:         alloc,
		logger:        logger,
		config:        config,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/components", s.handleHealthComponents)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/admin/reallocate", s.handleReallocate)
	if metricsCollector != nil {
		if h := metricsCollector.Handler(); h != nil {
			mux.Handle(metricsCollector.Path(), h)
		}
	}

	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Start runs the admin server, blocking until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting admin server", map[string]interface{}{"address": s.config.Address})
	return s.httpServer.ListenAndServe()
}

// StartBackground runs Start in a goroutine, logging a non-graceful exit.
func (s *Server) StartBackground() {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin server exited", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Shutdown gracefully stops the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.healthTracker == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy", "note": "health tracking not configured"})
		return
	}

	overall := s.healthTracker.GetOverallHealth()
	components := s.healthTracker.GetAllComponents()

	statusCode := http.StatusOK
	switch overall {
	case health.StateUnavailable:
		statusCode = http.StatusServiceUnavailable
	case health.StateDegraded, health.StateReadOnly:
		statusCode = http.StatusPartialContent
	}

	s.respondJSON(w, statusCode, map[string]interface{}{
		"status":     overall.String(),
		"components": len(components),
		"timestamp":  time.Now(),
	})
}

func (s *Server) handleHealthComponents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.healthTracker == nil {
		s.respondError(w, http.StatusServiceUnavailable, "health tracking not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.healthTracker.GetAllComponents())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.statusTracker == nil {
		s.respondError(w, http.StatusServiceUnavailable, "status tracking not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.statusTracker.Snapshot())
}

// handleReallocate triggers an out-of-cycle allocator.Reallocate(), in addition
// to the periodic ticker-driven pass.
func (s *Server) handleReallocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.alloc == nil {
		s.respondError(w, http.StatusServiceUnavailable, "allocator not configured")
		return
	}

	s.alloc.Reallocate()
	snap := s.alloc.StatusSnapshot()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"blocks_assigned":   snap.BlocksAssigned,
		"keys_tracked":      snap.KeysTracked,
		"last_reallocation": snap.LastReallocation,
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("admin request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		})
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode admin response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, map[string]interface{}{"error": message, "timestamp": time.Now()})
}
