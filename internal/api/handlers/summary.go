package handlers

import (
	"net/http"

	"github.com/wonny/stockscope/internal/aggregate"
	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/pkg/logger"
)

// SummaryHandler serves aggregated financial summaries
type SummaryHandler struct {
	summary *aggregate.Service
	logger  *logger.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summary *aggregate.Service, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		summary: summary,
		logger:  log,
	}
}

// GetSummary aggregates the category (cache-through)
// GET /api/stocks/financialsummary?marketCapCategory=midcap
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	category, err := contracts.ParseCategory(r.URL.Query().Get("marketCapCategory"))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financial summary")
		return
	}

	summary, err := h.summary.Summary(r.Context(), category)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financial summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetLatestSummary returns the last crunched summary
// GET /api/stocks/financialsummary/latest?marketCapCategory=midcap
func (h *SummaryHandler) GetLatestSummary(w http.ResponseWriter, r *http.Request) {
	category, err := contracts.ParseCategory(r.URL.Query().Get("marketCapCategory"))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financial summary")
		return
	}

	stored, err := h.summary.Latest(r.Context(), category)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financial summary")
		return
	}
	respondJSON(w, http.StatusOK, stored)
}
