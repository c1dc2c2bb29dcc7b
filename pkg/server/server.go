// Package server exposes the notebook engine over HTTP: notebook CRUD,
// cell mutation, the run-cell entry point, the tool catalog, and a
// websocket stream of live snapshots.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/acordeiro/cellbook/pkg/runner"
	"github.com/acordeiro/cellbook/pkg/store"
	"github.com/acordeiro/cellbook/pkg/tools"
)

// Server serves the REST API for the notebook system.
type Server struct {
	notebooks store.NotebookStore
	runner    *runner.Runner
	registry  *tools.Registry
	srv       *http.Server

	// Per-notebook run locks: load -> run -> save is serialized per
	// notebook id so overlapping run requests cannot lose updates.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a new Server.
func New(notebooks store.NotebookStore, r *runner.Runner, registry *tools.Registry) *Server {
	return &Server{
		notebooks: notebooks,
		runner:    r,
		registry:  registry,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	// Notebook routes
	mux.HandleFunc("GET /api/notebooks", s.handleListNotebooks)
	mux.HandleFunc("POST /api/notebooks", s.handleCreateNotebook)
	mux.HandleFunc("GET /api/notebooks/{id}", s.handleGetNotebook)
	mux.HandleFunc("DELETE /api/notebooks/{id}", s.handleDeleteNotebook)

	// Cells
	mux.HandleFunc("POST /api/notebooks/{id}/cells", s.handleAddCell)
	mux.HandleFunc("PUT /api/notebooks/{id}/cells/{index}", s.handleUpdateCell)
	mux.HandleFunc("DELETE /api/notebooks/{id}/cells/{index}", s.handleDeleteCell)
	mux.HandleFunc("POST /api/notebooks/{id}/cells/{index}/run", s.handleRunCell)

	// Tool catalog
	mux.HandleFunc("GET /api/tools", s.handleListTools)

	// Advisory executing indicator
	mux.HandleFunc("GET /api/executing", s.handleExecuting)

	// WebSocket snapshot stream
	mux.HandleFunc("/api/notebooks/{id}/watch", s.handleWatchWebSocket)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.corsMiddleware(mux),
	}

	slog.Info("Starting web server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// lockFor returns the run lock for a notebook id, creating it on first use.
func (s *Server) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	return mu
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API Error", "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
