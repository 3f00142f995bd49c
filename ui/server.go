// Package ui serves stored experiments over HTTP: JSON listings for
// tooling, plus rendered markdown, HTML and SVG report views.
package ui

import (
	"encoding/json"
	"net/http"

	"episens/app"
	"episens/domain/core"
	"episens/domain/experiment"
	"episens/internal"
	"episens/internal/chart"
	"episens/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the experiment archive
type Server struct {
	service *app.ExperimentService
	router  *chi.Mux
	logger  *internal.Logger
}

// NewServer wires routes and middleware
func NewServer(service *app.ExperimentService, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		service: service,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/experiments", s.handleListExperiments)
	s.router.Get("/experiments/{id}", s.handleGetExperiment)
	s.router.Get("/experiments/{id}/report", s.handleReportMarkdown)
	s.router.Get("/experiments/{id}/report.html", s.handleReportHTML)
	s.router.Get("/experiments/{id}/chart.svg", s.handleChart)
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on the given address until the listener fails
func (s *Server) Start(addr string) error {
	s.logger.Info("report server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	manifests, err := s.service.ListExperiments(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"experiments": manifests})
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	bundle, ok := s.loadBundle(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, bundle)
}

func (s *Server) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	bundle, ok := s.loadBundle(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(report.Markdown(bundle)))
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	bundle, ok := s.loadBundle(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(report.HTML(bundle))
}

// handleChart renders the SVG for one report of the experiment, selected by
// outcome (defaulting to the first stored report).
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	bundle, ok := s.loadBundle(w, r)
	if !ok {
		return
	}
	rep := pickReport(bundle, r.URL.Query().Get("outcome"))
	if rep == nil {
		http.Error(w, "no report for requested outcome", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(chart.Render(rep)))
}

func (s *Server) loadBundle(w http.ResponseWriter, r *http.Request) (*experiment.Bundle, bool) {
	id, err := core.ParseExperimentID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	bundle, err := s.service.GetExperiment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return bundle, true
}

func pickReport(bundle *experiment.Bundle, outcome string) *experiment.SensitivityReport {
	if outcome == "" {
		if len(bundle.Reports) == 0 {
			return nil
		}
		return bundle.Reports[0]
	}
	for _, r := range bundle.Reports {
		if r.Outcome == outcome {
			return r
		}
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if core.IsNotFoundError(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Error("request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
