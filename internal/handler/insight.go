package handler

import (
	"errors"
	"net/http"

	"github.com/venus-savings/venus/internal/service"
)

type InsightHandler struct {
	insightService *service.InsightService
}

func NewInsightHandler(insightService *service.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"insights": h.insightService.Insights()})
}

func (h *InsightHandler) Tip(w http.ResponseWriter, r *http.Request) {
	insight, err := h.insightService.Tip()
	if errors.Is(err, service.ErrNoInsights) {
		writeMessage(w, http.StatusNotFound, "no insights yet.")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"insight": insight})
}
