package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// LeadHandler handles lead API requests
type LeadHandler struct {
	leads  interfaces.LeadStorage
	logger arbor.ILogger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads interfaces.LeadStorage, logger arbor.ILogger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: logger,
	}
}

// createLeadRequest is the POST /api/leads body
type createLeadRequest struct {
	Company string `json:"company"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

// CreateLeadHandler stores a new lead
// POST /api/leads
func (h *LeadHandler) CreateLeadHandler(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "import"
	}

	now := time.Now()
	lead := &models.Lead{
		ID:        common.NewLeadID(),
		Company:   req.Company,
		Contact:   req.Contact,
		Email:     req.Email,
		URL:       req.URL,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.leads.SaveLead(r.Context(), lead); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Debug().Str("lead_id", lead.ID).Str("company", lead.Company).Msg("Lead created")
	WriteJSON(w, http.StatusCreated, lead)
}

// ListLeadsHandler returns leads newest first
// GET /api/leads?limit=50&offset=0
func (h *LeadHandler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	limit := QueryInt(r, "limit", 50)
	offset := QueryInt(r, "offset", 0)

	list, err := h.leads.ListLeads(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total, err := h.leads.CountLeads(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"leads": list,
		"count": len(list),
		"total": total,
	})
}

// LeadsHandler dispatches GET/POST on /api/leads
func (h *LeadHandler) LeadsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateLeadHandler(w, r)
	case http.MethodGet:
		h.ListLeadsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
