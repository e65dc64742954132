package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/xavierca1/followwise/internal/logger"
	"github.com/xavierca1/followwise/internal/usecase"
)

// StatusClientClosedRequest is nginx's code for a caller that gave up.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	LeadID           string                    `json:"lead_id,omitempty"`
	Tone             string                    `json:"tone,omitempty"`
	VariantIndex     *int                      `json:"variant_index,omitempty"`
	MayHaveDelivered bool                      `json:"may_have_delivered,omitempty"`
	Fields           []usecase.ValidationError `json:"fields,omitempty"`
}

var statusByCode = map[string]int{
	usecase.CodeValidation:        http.StatusBadRequest,
	usecase.CodeInvalidArgument:   http.StatusBadRequest,
	usecase.CodeNotFound:          http.StatusNotFound,
	usecase.CodeConflict:          http.StatusConflict,
	usecase.CodeAlreadyInProgress: http.StatusConflict,
	usecase.CodeAlreadySent:       http.StatusConflict,
	usecase.CodeStaleSuggestion:   http.StatusConflict,
	usecase.CodeGenerationFailed:  http.StatusBadGateway,
	usecase.CodeSendFailed:        http.StatusBadGateway,
	usecase.CodeCancelled:         StatusClientClosedRequest,
}

// StatusFor maps an error returned by a use case to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[usecase.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, base *slog.Logger, err error) {
	status := StatusFor(err)

	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeJSON(w, status, ErrorResponse{
			Error:            de.Code,
			Message:          de.Error(),
			LeadID:           de.LeadID,
			Tone:             de.Tone,
			VariantIndex:     de.VariantIndex,
			MayHaveDelivered: de.MayHaveDelivered,
			Fields:           de.Fields,
		})
		return
	}

	// Technical details stay in the log.
	logger.FromContext(r.Context(), base).Error("request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, status, ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

func badRequest(message string, field string) error {
	return &usecase.DomainError{
		Code:    usecase.CodeValidation,
		Message: message,
		Fields:  []usecase.ValidationError{{Field: field, Message: message}},
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body", "body")
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(name+" must be a non-negative integer", name)
	}
	return n, nil
}
