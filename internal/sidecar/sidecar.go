// Package sidecar exposes a small read-only HTTP surface alongside the Unix
// socket RPC server: device/queue status for humans and load balancers, and
// Prometheus metrics for scraping. It never touches the request queue
// directly — every handler reads the model table or request log under their
// own locks, the same way the RPC dispatch table does, so a slow or wedged
// HTTP client can never hold up an inference request.
package sidecar

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferro-labs/hailo-devmgr/internal/logging"
	"github.com/ferro-labs/hailo-devmgr/internal/requestlog"
)

// StatusSource is the subset of *devmgr.Manager the sidecar depends on.
type StatusSource interface {
	Status() map[string]any
	DeviceStatus() map[string]any
	QueueDepth() int64
	RequestLogReader() (requestlog.Reader, bool)
}

// Server is the read-only HTTP sidecar. A zero Server is not usable; build
// one with New.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a sidecar bound to addr. addr is validated by the caller: the
// documented disable tokens (see Disabled) mean the caller should never
// construct a Server at all.
func New(addr string, source StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware)

	r.Get("/v1/device/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, source.DeviceStatus())
	})

	r.Get("/v1/device/queue", func(w http.ResponseWriter, req *http.Request) {
		payload := map[string]any{
			"queue_depth": source.QueueDepth(),
		}
		if reader, ok := source.RequestLogReader(); ok {
			limit := 20
			if raw := req.URL.Query().Get("limit"); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil && n > 0 {
					limit = n
				}
			}
			ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
			defer cancel()
			result, err := reader.List(ctx, requestlog.Query{Limit: limit})
			if err != nil {
				logger.Warn("failed to list request log for sidecar", "error", err)
				payload["recent_requests"] = []requestlog.Entry{}
			} else {
				payload["recent_requests"] = result.Data
				payload["recent_requests_total"] = result.Total
			}
		}
		writeJSON(w, http.StatusOK, payload)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		logger: logger,
	}
}

// Run listens until ctx is cancelled, then shuts the HTTP server down.
// Blocks until shutdown completes or the grace period elapses.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	s.logger.Info("status sidecar listening", "addr", s.httpServer.Addr)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-serveErr
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Disabled reports whether addr is one of the documented tokens that turn
// the sidecar off entirely.
func Disabled(addr string) bool {
	switch addr {
	case "", "0", "off", "false", "none", "disable", "disabled":
		return true
	default:
		return false
	}
}
