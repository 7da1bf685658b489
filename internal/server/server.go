package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/bayesopt/internal/config"
	"github.com/cwbudde/bayesopt/internal/store"
)

// Server represents the HTTP server
type Server struct {
	runManager *RunManager
	store      store.Store
	dataDir    string
	addr       string
	server     *http.Server

	// runs are started from baseCtx; Shutdown cancels runs that have not
	// started yet
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer creates a new HTTP server. checkpointStore may be nil; dataDir
// overrides the trace directory of submitted runs when set.
func NewServer(addr string, checkpointStore store.Store, dataDir string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runManager: NewRunManager(),
		store:      checkpointStore,
		dataDir:    dataDir,
		addr:       addr,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Handler returns the server's routes wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "active_runs", s.runManager.ActiveRuns())
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRuns handles /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunsWithID handles /api/v1/runs/:id/*
func (s *Server) handleRunsWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	runID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetRunStatus(w, r, runID)
	case parts[1] == "stream":
		s.handleRunStream(w, r, runID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateRun handles POST /api/v1/runs. The body is a RunConfig;
// omitted fields keep their defaults.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	cfg := config.Default()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if s.dataDir != "" {
		cfg.Store.Dir = s.dataDir
	}

	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid config: %v", err), http.StatusBadRequest)
		return
	}

	run := s.runManager.CreateRun(cfg)

	go func() {
		if err := runJob(s.baseCtx, s.runManager, s.store, s.dataDir, run.ID); err != nil {
			slog.Debug("Background run ended with error", "run_id", run.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, run)
}

// handleListRuns handles GET /api/v1/runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.runManager.ListRuns()
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})

	writeJSON(w, http.StatusOK, runs)
}

// handleGetRunStatus handles GET /api/v1/runs/:id/status
func (s *Server) handleGetRunStatus(w http.ResponseWriter, r *http.Request, runID string) {
	run, exists := s.runManager.GetRun(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if run.EndTime != nil {
		elapsed = run.EndTime.Sub(run.StartTime)
	} else {
		elapsed = time.Since(run.StartTime)
	}

	response := map[string]interface{}{
		"id":             run.ID,
		"state":          run.State,
		"config":         run.Config,
		"phase":          run.Phase,
		"iteration":      run.Iteration,
		"observations":   run.Observations,
		"incumbent":      run.Incumbent,
		"incumbentValue": run.IncumbentValue,
		"elapsed":        elapsed.Seconds(),
		"startTime":      run.StartTime,
		"endTime":        run.EndTime,
		"error":          run.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"activeRuns": s.runManager.ActiveRuns(),
		"totalRuns":  len(s.runManager.ListRuns()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
