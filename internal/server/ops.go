// internal/server/ops.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// OpsServer serves /health, /ready and /metrics for the worker process.
type OpsServer struct {
	server *http.Server
	router *chi.Mux
	checks map[string]Check
	logger logger.Logger
}

// NewOpsServer builds the router. Readiness runs every check with
// checkTimeout; the process is ready only when all of them pass.
func NewOpsServer(cfg config.ServerConfig, checks map[string]Check, log logger.Logger) *OpsServer {
	s := &OpsServer{
		router: chi.NewRouter(),
		checks: checks,
		logger: logger.ForComponent(log, "ops-server"),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/health", s.health)
	s.router.Get("/ready", s.ready)
	s.router.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *OpsServer) Handler() http.Handler {
	return s.router
}

func (s *OpsServer) ListenAndServe() error {
	s.logger.Info("ops server listening", map[string]interface{}{"address": s.server.Addr})
	return s.server.ListenAndServe()
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *OpsServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *OpsServer) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}

const checkTimeout = 3 * time.Second

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
