package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/ranking"
	"github.com/wonny/stockscope/pkg/logger"
)

// TopNRequest is the body of the individual top-N endpoint
type TopNRequest struct {
	Criteria          string `json:"criteria"`
	N                 int    `json:"n"`
	OrderDirection    string `json:"orderDirection"`
	MarketCapCategory string `json:"marketCapCategory"`
}

// RankingHandler serves metric rankings and the metric catalog
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	ranking *ranking.Service
	logger  *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rank *ranking.Service, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		ranking: rank,
		logger:  log,
	}
}

// GetTop returns the detailed top or last N stocks for a metric
// GET /api/stocks/top/{metric}/{order}/{limit}?marketCapCategory=largecap
func (h *RankingHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit, err := strconv.Atoi(vars["limit"])
	if err != nil {
		err = contracts.NewValidationError("limit", "must be a positive integer, got %q", vars["limit"])
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}

	req, err := rankingRequest(vars["metric"], vars["order"], limit, r.URL.Query().Get("marketCapCategory"))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}
	req.WithDetails = true
	req.RequireMarketCap = true

	rows, err := h.ranking.Rank(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: rows})
}

// TopNIndividual ranks every stock by one metric
// POST /api/stocks/top-n-individual
func (h *RankingHandler) TopNIndividual(w http.ResponseWriter, r *http.Request) {
	var body TopNRequest
	if err := decodeJSON(r, &body); err != nil {
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}

	req, err := rankingRequest(body.Criteria, body.OrderDirection, body.N, body.MarketCapCategory)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}

	rows, err := h.ranking.Rank(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "rankings")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: rows})
}

// GetCatalog lists every rankable metric
// GET /api/metrics/catalog
func (h *RankingHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ListResponse{Data: h.ranking.Catalog().Descriptors()})
}
