package server

import (
	"net/http"
	"strings"

	"github.com/10thony/prospector/internal/common"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Runs (batch run lifecycle)
	mux.HandleFunc("/api/runs", s.handleRunsRoute)  // GET (list), POST (start)
	mux.HandleFunc("/api/runs/", s.handleRunRoutes) // GET /{id} plus subpaths

	// API routes - Leads
	mux.HandleFunc("/api/leads", s.app.LeadHandler.LeadsHandler) // GET (list), POST (create)

	// API routes - Reviews (accept/reject pending entries)
	mux.HandleFunc("/api/reviews/", s.app.ReviewHandler.DecideHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.versionHandler)
	mux.HandleFunc("/api/health", s.healthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleRunsRoute dispatches the runs collection endpoint
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.RunHandler.ListRunsHandler(w, r)
	case http.MethodPost:
		s.app.RunHandler.StartRunHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunRoutes routes /api/runs/{id} and its subpaths
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// parts[0]="api" parts[1]="runs" parts[2]=id [parts[3]=action]
	if len(parts) < 3 || parts[2] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	runID := parts[2]

	if len(parts) == 3 {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.RunHandler.GetRunHandler(w, r, runID)
		return
	}

	action := parts[3]
	switch {
	case action == "results" && r.Method == http.MethodGet:
		s.app.RunHandler.ListResultsHandler(w, r, runID)
	case action == "reviews" && r.Method == http.MethodGet:
		s.app.ReviewHandler.ListReviewsHandler(w, r, runID)
	case action == "resume" && r.Method == http.MethodPost:
		s.app.RunHandler.ResumeRunHandler(w, r, runID)
	case action == "cancel" && r.Method == http.MethodPost:
		s.app.RunHandler.CancelRunHandler(w, r, runID)
	case action == "signal" && r.Method == http.MethodPost:
		s.app.ReviewHandler.SignalHandler(w, r, runID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"version":"` + common.GetVersion() + `"}`))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}
