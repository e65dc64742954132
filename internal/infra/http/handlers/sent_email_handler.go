package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/usecase"
)

type SentEmailHandler struct {
	ListUC *usecase.ListSentEmailsUseCase
	LogUC  *usecase.LogSentEmailUseCase
	Logger *slog.Logger
}

func NewSentEmailHandler(list *usecase.ListSentEmailsUseCase, logUC *usecase.LogSentEmailUseCase, logger *slog.Logger) *SentEmailHandler {
	return &SentEmailHandler{ListUC: list, LogUC: logUC, Logger: logger}
}

// Log serves POST /sent-emails.
func (h *SentEmailHandler) Log(w http.ResponseWriter, r *http.Request) {
	var input usecase.LogSentEmailInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	h.log(w, r, input)
}

// LogForLead serves POST /leads/{leadId}/sent-emails. The path wins over
// any source_lead_id in the body.
func (h *SentEmailHandler) LogForLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.LogSentEmailInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	leadID := chi.URLParam(r, "leadId")
	input.SourceLeadID = &leadID
	h.log(w, r, input)
}

func (h *SentEmailHandler) log(w http.ResponseWriter, r *http.Request, input usecase.LogSentEmailInput) {
	email, err := h.LogUC.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, email)
}

// List serves GET /sent-emails?lead_id=&limit=&offset=.
func (h *SentEmailHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("lead_id"))
}

// ListForLead serves GET /leads/{leadId}/sent-emails.
func (h *SentEmailHandler) ListForLead(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "leadId"))
}

func (h *SentEmailHandler) list(w http.ResponseWriter, r *http.Request, leadID string) {
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

	emails, err := h.ListUC.Execute(r.Context(), entity.SentEmailFilter{
		LeadID: leadID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}
