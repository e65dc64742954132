package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/usecase"
)

type LeadHandler struct {
	Leads  *usecase.LeadService
	Logger *slog.Logger
}

func NewLeadHandler(leads *usecase.LeadService, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{Leads: leads, Logger: logger}
}

type ImportLeadsRequest struct {
	Leads []usecase.CreateLeadInput `json:"leads"`
}

// List handles GET /leads.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	q := r.URL.Query()
	leads, err := h.Leads.List(r.Context(), entity.LeadFilter{
		Status: entity.LeadStatus(strings.ToLower(q.Get("status"))),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// Create handles POST /leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	lead, err := h.Leads.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// Import handles POST /leads/import.
func (h *LeadHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportLeadsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if len(req.Leads) == 0 {
		writeError(w, r, h.Logger, badRequest("leads must not be empty", "leads"))
		return
	}

	out, err := h.Leads.Import(r.Context(), req.Leads)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "leadId"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Update handles PATCH /leads/{leadId}; absent fields are left alone.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	lead, err := h.Leads.Update(r.Context(), chi.URLParam(r, "leadId"), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Leads.Delete(r.Context(), chi.URLParam(r, "leadId")); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
