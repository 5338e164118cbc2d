// Package server exposes the arena session over HTTP: a JSON snapshot and
// command endpoint, a websocket snapshot stream, health and metrics.
package server

import (
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/observability"
	"bot-arena-go/internal/scheduler"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Runtime is the session the server drives. *scheduler.Scheduler implements it.
type Runtime interface {
	Snapshot(ctx context.Context) scheduler.Snapshot
	Start(ctx context.Context, stageID string, speed float64) scheduler.Snapshot
	Pause(ctx context.Context) scheduler.Snapshot
	Resume(ctx context.Context) scheduler.Snapshot
	Stop(ctx context.Context) scheduler.Snapshot
	Reset(ctx context.Context) scheduler.Snapshot
	UpdateOptions(ctx context.Context, stageID string, speed float64) scheduler.Snapshot
	RegenerateStages(ctx context.Context) scheduler.Snapshot
}

// Command is the body of POST /api/runtime.
type Command struct {
	Action  string  `json:"action"`
	StageID string  `json:"stageId,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
}

// Server is the HTTP front of the arena.
type Server struct {
	router  *mux.Router
	server  *http.Server
	runtime Runtime
	metrics *observability.Metrics
	logger  *zap.Logger

	streamInterval time.Duration
	quit           chan struct{}
	quitOnce       sync.Once
	streams        sync.WaitGroup
}

// New builds the router. metrics may be nil, in which case /metrics is not served.
func New(cfg *models.Config, rt Runtime, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.StreamInterval()
	if interval <= 0 {
		interval = time.Second
	}
	s := &Server{
		router:         mux.NewRouter(),
		runtime:        rt,
		metrics:        metrics,
		logger:         logger,
		streamInterval: interval,
		quit:           make(chan struct{}),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runtime", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/runtime", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/runtime/stream", s.handleStream).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown closes open streams and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.quitOnce.Do(func() { close(s.quit) })
	err := s.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runtime.Snapshot(r.Context()))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid command body: %v", err))
		return
	}

	ctx := r.Context()
	var snap scheduler.Snapshot
	switch cmd.Action {
	case "start":
		snap = s.runtime.Start(ctx, cmd.StageID, cmd.Speed)
	case "pause":
		snap = s.runtime.Pause(ctx)
	case "resume":
		snap = s.runtime.Resume(ctx)
	case "stop":
		snap = s.runtime.Stop(ctx)
	case "reset":
		snap = s.runtime.Reset(ctx)
	case "options":
		snap = s.runtime.UpdateOptions(ctx, cmd.StageID, cmd.Speed)
	case "regenerate":
		snap = s.runtime.RegenerateStages(ctx)
	case "":
		snap = s.runtime.Snapshot(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", cmd.Action))
		return
	}
	s.logger.Info("command applied",
		zap.String("action", cmd.Action), zap.String("status", string(snap.Status)), zap.String("message", snap.Message))
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
