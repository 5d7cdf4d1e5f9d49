package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/services/review"
)

// ReviewHandler handles pending review disposition requests
type ReviewHandler struct {
	service *review.Service
	logger  arbor.ILogger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, logger arbor.ILogger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger,
	}
}

// ListReviewsHandler returns a run's pending review entries
// GET /api/runs/{id}/reviews
func (h *ReviewHandler) ListReviewsHandler(w http.ResponseWriter, r *http.Request, runID string) {
	list, err := h.service.ListPending(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": list,
		"count":   len(list),
	})
}

// SignalHandler delivers the resume signal to a paused run. Duplicate
// delivery is a safe no-op and still answers 202.
// POST /api/runs/{id}/signal
func (h *ReviewHandler) SignalHandler(w http.ResponseWriter, r *http.Request, runID string) {
	delivered, err := h.service.Resume(r.Context(), runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, err.Error())
		} else {
			WriteError(w, http.StatusConflict, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":    "signaled",
		"delivered": delivered,
	})
}

// DecideHandler handles accept/reject on a review entry
// POST /api/reviews/{id}/accept | /api/reviews/{id}/reject
func (h *ReviewHandler) DecideHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected: api/reviews/{id}/{action}
	if len(parts) != 4 {
		WriteError(w, http.StatusBadRequest, "Expected /api/reviews/{id}/accept or /api/reviews/{id}/reject")
		return
	}
	reviewID, action := parts[2], parts[3]

	var err error
	switch action {
	case "accept":
		err = h.service.Accept(r.Context(), reviewID)
	case "reject":
		err = h.service.Reject(r.Context(), reviewID)
	default:
		WriteError(w, http.StatusBadRequest, "Unknown review action: "+action)
		return
	}

	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, err.Error())
		} else {
			WriteError(w, http.StatusConflict, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"review": reviewID,
		"action": action,
	})
}
