package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/http/middleware"
	"github.com/xavierca1/followwise/internal/usecase"
)

type FollowupHandler struct {
	Generate    *usecase.GenerateFollowupsUseCase
	Suggestions *usecase.GetFollowupsUseCase
	Send        *usecase.SendFollowupUseCase
	Limiter     *RateLimiter
	Logger      *slog.Logger
}

func NewFollowupHandler(
	generate *usecase.GenerateFollowupsUseCase,
	suggestions *usecase.GetFollowupsUseCase,
	send *usecase.SendFollowupUseCase,
	limiter *RateLimiter,
	logger *slog.Logger,
) *FollowupHandler {
	return &FollowupHandler{
		Generate:    generate,
		Suggestions: suggestions,
		Send:        send,
		Limiter:     limiter,
		Logger:      logger,
	}
}

type GenerateFollowupsRequest struct {
	Tone    string `json:"tone"`
	Context string `json:"context,omitempty"`
}

type GenerateFollowupsResponse struct {
	LeadID      string                      `json:"lead_id"`
	Tone        string                      `json:"tone"`
	Suggestions []entity.FollowupSuggestion `json:"suggestions"`
}

// HandleGenerate serves POST /leads/{leadId}/followups/generate.
func (h *FollowupHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(getClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:   "RATE_LIMITED",
			Message: "Too many requests. Please try again later.",
		})
		return
	}

	var req GenerateFollowupsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	leadID := chi.URLParam(r, "leadId")
	suggestions, err := h.Generate.Execute(r.Context(), usecase.GenerateFollowupsInput{
		LeadID:  leadID,
		Tone:    req.Tone,
		Context: req.Context,
	})
	middleware.RecordGeneration(req.Tone, resultLabel(err, "ok"))
	if err != nil {
		if usecase.ErrorCode(err) == usecase.CodeGenerationFailed {
			middleware.RecordIntegrationError("ai")
		}
		writeError(w, r, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateFollowupsResponse{
		LeadID:      leadID,
		Tone:        req.Tone,
		Suggestions: suggestions,
	})
}

// HandleList serves GET /leads/{leadId}/followups.
func (h *FollowupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.Suggestions.Execute(r.Context(), chi.URLParam(r, "leadId"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleSend serves POST /leads/{leadId}/followups/{variantIndex}/send.
func (h *FollowupHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadId")

	idx, err := strconv.Atoi(chi.URLParam(r, "variantIndex"))
	if err != nil || idx < 0 {
		writeError(w, r, h.Logger, &usecase.DomainError{
			Code:    usecase.CodeInvalidArgument,
			Message: "variant index must be a non-negative integer",
			LeadID:  leadID,
		})
		return
	}

	out, err := h.Send.Execute(r.Context(), leadID, idx)
	middleware.RecordSend(resultLabel(err, "sent"))
	if err != nil {
		if usecase.ErrorCode(err) == usecase.CodeSendFailed {
			middleware.RecordIntegrationError("mail")
		}
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func resultLabel(err error, success string) string {
	if err == nil {
		return success
	}
	if code := usecase.ErrorCode(err); code != "" {
		return code
	}
	return "INTERNAL_ERROR"
}
