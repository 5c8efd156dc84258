package handler

import (
	"net/http"

	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/service"
)

type statsHandler struct {
	statsService     *service.StatsService
	analyticsService *service.AnalyticsService
}

func NewStatsHandler(statsService *service.StatsService, analyticsService *service.AnalyticsService) *statsHandler {
	return &statsHandler{
		statsService:     statsService,
		analyticsService: analyticsService,
	}
}

// Personal returns the caller's cumulative totals.
func (h *statsHandler) Personal(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.ForUser(r.Context(), ctxkeys.User(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Analytics returns the platform overview for ?range=7d|30d|90d|1y (default 30d).
func (h *statsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analyticsService.Overview(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
