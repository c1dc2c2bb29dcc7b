package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/notebook"
)

// --- Notebooks ---

func (s *Server) handleListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := s.notebooks.List(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nbs)
}

func (s *Server) handleCreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path     string          `json:"path"`
		Settings domain.Settings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	nb := notebook.New(req.Path)
	nb.Settings = req.Settings
	if err := s.notebooks.Create(r.Context(), nb); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, nb)
}

func (s *Server) handleGetNotebook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	nb, err := s.notebooks.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nb)
}

func (s *Server) handleDeleteNotebook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.notebooks.Delete(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Cells ---

func (s *Server) handleAddCell(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Type    domain.CellType `json:"type"`
		Content string          `json:"content"`
		// After, when set, splices the new cell after that index
		// instead of appending.
		After *int `json:"after,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Type == "" {
		req.Type = domain.CellTypeMarkdown
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	nb, err := s.notebooks.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}

	cell := notebook.NewCell(req.Type, req.Content)
	var next *domain.Notebook
	if req.After != nil {
		next = notebook.InsertCellsAfter(nb, *req.After, []domain.Cell{cell})
	} else {
		next = notebook.AppendCell(nb, cell)
	}

	if err := s.notebooks.Update(r.Context(), next); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, next)
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid cell index: %w", err))
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	nb, err := s.notebooks.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	if index < 0 || index >= len(nb.Cells) {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("cell index %d out of range", index))
		return
	}

	next := notebook.UpdateCell(nb, index, func(c *domain.Cell) {
		c.Content = req.Content
	})
	if err := s.notebooks.Update(r.Context(), next); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, next)
}

func (s *Server) handleDeleteCell(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid cell index: %w", err))
		return
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	nb, err := s.notebooks.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	if index < 0 || index >= len(nb.Cells) {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("cell index %d out of range", index))
		return
	}

	next := notebook.DeleteCell(nb, index)
	if err := s.notebooks.Update(r.Context(), next); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, next)
}

// handleRunCell is the single run-cell entry point. The load -> run ->
// save sequence holds the notebook's run lock so overlapping requests
// against the same notebook apply in order instead of last-write-wins.
func (s *Server) handleRunCell(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid cell index: %w", err))
		return
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	nb, err := s.notebooks.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}

	next, err := s.runner.Run(r.Context(), nb, index)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}

	if err := s.notebooks.Update(r.Context(), next); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, next)
}

// --- Tools ---

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.registry.Descriptors())
}

// --- Executing indicator ---

func (s *Server) handleExecuting(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]bool{"executing": s.runner.Executing()})
}
