// Package server provides the HTTP API for async smoke runs.
//
// Endpoints:
//
//	POST /checks       enqueue a smoke run; returns the operation ID immediately
//	GET  /checks/{id}  poll operation status and retrieve the report
//	GET  /metrics      Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tomasbasham/storage-smoke/internal/operation"
	"github.com/tomasbasham/storage-smoke/internal/smoke"
)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	store   operation.Store
	tester  *smoke.Tester
	metrics *Metrics
	logger  *zap.Logger
	mux     *http.ServeMux
}

// New creates a Server wired to the given store and tester.
func New(store operation.Store, tester *smoke.Tester, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		tester:  tester,
		metrics: NewMetrics(),
		logger:  logger,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /checks", s.handleCreateRun)
	s.mux.HandleFunc("GET /checks/{id}", s.handleGetRun)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// createRunRequest is the JSON body for POST /checks. Both fields are
// optional; an empty body runs every check without cleanup.
type createRunRequest struct {
	Checks  []string `json:"checks,omitempty"`
	Cleanup bool     `json:"cleanup"`
}

// createRunResponse is returned immediately from POST /checks.
type createRunResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	checks := make([]smoke.Check, 0, len(req.Checks))
	for _, name := range req.Checks {
		c, err := smoke.ParseCheck(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		checks = append(checks, c)
	}

	op, err := s.store.Create(checks, req.Cleanup)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create operation: "+err.Error())
		return
	}

	// The run must outlive the request that started it.
	ctx := context.WithoutCancel(r.Context())
	s.metrics.InFlight.Inc()
	go func() {
		defer s.metrics.InFlight.Dec()
		operation.Run(ctx, operation.WorkerOptions{
			OperationID: op.ID,
			Store:       s.store,
			Tester:      s.tester.WithCleanup(op.Cleanup),
			Checks:      op.Checks,
			OnFinish:    s.metrics.Observe,
			Logger:      s.logger,
		})
	}()

	writeJSON(w, http.StatusAccepted, createRunResponse{
		OperationID: op.ID,
		Status:      string(operation.StatusPending),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "operation id is required")
		return
	}

	op, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("operation %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
