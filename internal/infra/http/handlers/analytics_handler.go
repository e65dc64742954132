package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xavierca1/followwise/internal/usecase"
)

type AnalyticsHandler struct {
	AnalyticsUC *usecase.GetAnalyticsUseCase
	Logger      *slog.Logger
	now         func() time.Time
}

func NewAnalyticsHandler(uc *usecase.GetAnalyticsUseCase, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{AnalyticsUC: uc, Logger: logger, now: time.Now}
}

// Handle serves GET /analytics?range=&period=&from=&to=.
func (h *AnalyticsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := usecase.ParseWindow(q.Get("range"), q.Get("period"), q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	report, err := h.AnalyticsUC.Execute(r.Context(), window)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
