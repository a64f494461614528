package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/stats"
)

type StatsHandler struct {
	agg *stats.Aggregator
	log *logger.Logger
}

func NewStatsHandler(agg *stats.Aggregator, log *logger.Logger) *StatsHandler {
	return &StatsHandler{agg: agg, log: log}
}

func (h *StatsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	sum, err := h.agg.Statistics(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *StatsHandler) FollowUpConversion(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.agg.FollowUpConversionByAttempt(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.agg.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *StatsHandler) PendingFollowUps(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.agg.PendingFollowUps(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}
