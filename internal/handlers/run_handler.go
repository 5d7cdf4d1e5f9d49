package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
	"github.com/10thony/prospector/internal/runs"
)

// RunHandler handles batch run API requests
type RunHandler struct {
	orchestrator *runs.Orchestrator
	runStorage   interfaces.RunStorage
	results      interfaces.ResultStorage
	defaults     *common.RunsConfig
	logger       arbor.ILogger
}

// NewRunHandler creates a new run handler
func NewRunHandler(orchestrator *runs.Orchestrator, runStorage interfaces.RunStorage, results interfaces.ResultStorage, defaults *common.RunsConfig, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		orchestrator: orchestrator,
		runStorage:   runStorage,
		results:      results,
		defaults:     defaults,
		logger:       logger,
	}
}

// startRunRequest is the POST /api/runs body
type startRunRequest struct {
	Kind       string `json:"kind"`
	BatchSize  int    `json:"batch_size"`
	Order      string `json:"order"`
	MaxBatches int    `json:"max_batches"`
	StartedBy  string `json:"started_by"`
}

// StartRunHandler creates a run and begins executing it in the background
// POST /api/runs
func (h *RunHandler) StartRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.BatchSize <= 0 {
		req.BatchSize = h.defaults.DefaultBatchSize
	}
	if req.BatchSize > h.defaults.MaxBatchSize {
		WriteError(w, http.StatusBadRequest, "batch_size exceeds maximum")
		return
	}
	if req.Order == "" {
		req.Order = string(models.SortOldestFirst)
	}

	run, err := h.orchestrator.StartRun(r.Context(), runs.StartParams{
		Kind:       models.RunKind(req.Kind),
		BatchSize:  req.BatchSize,
		Order:      models.SortOrder(req.Order),
		MaxBatches: req.MaxBatches,
		StartedBy:  req.StartedBy,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.execute(run.ID)
	WriteJSON(w, http.StatusAccepted, run)
}

// GetRunHandler returns a single run
// GET /api/runs/{id}
func (h *RunHandler) GetRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runStorage.GetRun(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// ListRunsHandler returns runs filtered by status and kind
// GET /api/runs?status=running&kind=verification&limit=50&offset=0
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.RunListOptions{
		Status: models.RunStatus(r.URL.Query().Get("status")),
		Kind:   models.RunKind(r.URL.Query().Get("kind")),
		Limit:  QueryInt(r, "limit", 50),
		Offset: QueryInt(r, "offset", 0),
	}

	list, err := h.runStorage.ListRuns(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// ResumeRunHandler re-invokes the orchestrator on a resumable run
// POST /api/runs/{id}/resume
func (h *RunHandler) ResumeRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runStorage.GetRun(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if !run.IsResumable() {
		WriteError(w, http.StatusConflict, "run "+runID+" is not resumable from status "+string(run.Status))
		return
	}

	h.execute(runID)
	WriteStarted(w, "Run "+runID+" resuming from stored cursor")
}

// CancelRunHandler requests cooperative cancellation
// POST /api/runs/{id}/cancel
func (h *RunHandler) CancelRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if err := h.orchestrator.Cancel(r.Context(), runID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, err.Error())
		} else {
			WriteError(w, http.StatusConflict, err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "cancel_requested",
		"message": "Cancellation will be observed at the next page boundary",
	})
}

// ListResultsHandler returns a run's verification audit rows
// GET /api/runs/{id}/results?outcome=failed&limit=100
func (h *RunHandler) ListResultsHandler(w http.ResponseWriter, r *http.Request, runID string) {
	outcome := models.Outcome(r.URL.Query().Get("outcome"))
	limit := QueryInt(r, "limit", 100)

	list, err := h.results.ListResults(r.Context(), runID, outcome, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": list,
		"count":   len(list),
	})
}

// execute runs one orchestrator invocation in the background. Failures are
// reported through the run record's status and error fields, not HTTP.
func (h *RunHandler) execute(runID string) {
	common.SafeGo(h.logger, "run-"+runID, func() {
		if err := h.orchestrator.Execute(context.Background(), runID); err != nil {
			h.logger.Error().Err(err).Str("run_id", runID).Msg("Run invocation finished with error")
		}
	})
}
