package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/hnsw"
)

type createRequest struct {
	Dimension int `json:"dimension"`
}

type vectorInput struct {
	Vector []float64 `json:"vector"`
	Label  string    `json:"label"`
}

type addRequest struct {
	Vector []float64     `json:"vector,omitempty"`
	Label  string        `json:"label,omitempty"`
	Items  []vectorInput `json:"items,omitempty"`
}

type buildRequest struct {
	Metric string `json:"metric"`
}

type searchRequest struct {
	K       int         `json:"k"`
	Vector  []float64   `json:"vector,omitempty"`
	Vectors [][]float64 `json:"vectors,omitempty"`
}

type searchResponse struct {
	Results []hnsw.Result   `json:"results,omitempty"`
	Batch   [][]hnsw.Result `json:"batch,omitempty"`
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string][]string{"indexes": s.registry.Names()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.respondError(w, http.StatusNotImplemented, "metrics not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, s.metrics.GetStats())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Dimension <= 0 {
		s.respondError(w, http.StatusBadRequest, "dimension must be positive")
		return
	}

	name := chi.URLParam(r, "name")
	s.registry.Create(name, req.Dimension)
	s.respondJSON(w, http.StatusCreated, map[string]any{"name": name, "dimension": req.Dimension})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Drop(chi.URLParam(r, "name")) {
		s.respondError(w, http.StatusNotFound, horago.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.registry.Stats(chi.URLParam(r, "name"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !s.decode(w, r, &req) {
		return
	}

	name := chi.URLParam(r, "name")
	if _, err := s.registry.Stats(name); err != nil {
		s.respondErr(w, err)
		return
	}

	items := req.Items
	if req.Vector != nil {
		items = append([]vectorInput{{Vector: req.Vector, Label: req.Label}}, items...)
	}
	if len(items) == 0 {
		s.respondError(w, http.StatusBadRequest, "no vectors given")
		return
	}

	added := 0
	for _, it := range items {
		if err := s.registry.Add(name, it.Vector, it.Label); err != nil {
			s.respondJSON(w, statusFor(err), map[string]any{"error": err.Error(), "added": added})
			return
		}
		added++
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !s.decode(w, r, &req) {
		return
	}

	metric := distance.Parse(req.Metric)
	if err := s.registry.BuildMetric(chi.URLParam(r, "name"), metric); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": horago.BuildOK, "metric": metric.String()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	name := chi.URLParam(r, "name")
	if req.Vectors != nil {
		batch, err := s.registry.SearchBatch(r.Context(), name, req.K, req.Vectors)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, searchResponse{Batch: batch})
		return
	}

	results, err := s.registry.SearchResults(name, req.K, req.Vector)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if results == nil {
		results = []hnsw.Result{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]hnsw.Result{"results": results})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !s.decode(w, r, &req) || !s.requirePath(w, req.Path) {
		return
	}

	name := chi.URLParam(r, "name")
	if _, err := s.registry.Stats(name); err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.registry.DumpContext(r.Context(), name, req.Path); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "dumped", "path": req.Path})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !s.decode(w, r, &req) || !s.requirePath(w, req.Path) {
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.registry.LoadContext(r.Context(), name, req.Path); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "loaded", "name": name})
}

func (s *Server) requirePath(w http.ResponseWriter, path string) bool {
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return false
	}
	// Paths come from clients, so they must stay inside the store even when
	// the local store is unrooted.
	if err := blobstore.ValidateName(path); err != nil {
		s.respondErr(w, err)
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps the registry error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, horago.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, horago.ErrDimensionMismatchKind),
		errors.Is(err, horago.ErrUnsupportedMetric),
		errors.Is(err, horago.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, horago.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, horago.ErrCorruptData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, horago.ErrMemoryLimit):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
