package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// StatusHandler reports service status
type StatusHandler struct {
	runStorage interfaces.RunStorage
	leads      interfaces.LeadStorage
	logger     arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(runStorage interfaces.RunStorage, leads interfaces.LeadStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		runStorage: runStorage,
		leads:      leads,
		logger:     logger,
	}
}

// GetStatusHandler returns version and headline counts
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	leadCount, err := h.leads.CountLeads(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	active, err := h.runStorage.ListRuns(r.Context(), &interfaces.RunListOptions{
		Status: models.RunStatusRunning,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":     "prospector",
		"version":     common.GetVersion(),
		"leads":       leadCount,
		"active_runs": len(active),
	})
}
