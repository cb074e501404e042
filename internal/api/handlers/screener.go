package handlers

import (
	"net/http"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/ranking"
	"github.com/wonny/stockscope/internal/screener"
	"github.com/wonny/stockscope/pkg/logger"
)

// ScreenRequest is the body of both screener endpoints
type ScreenRequest struct {
	Criteria []screener.RawCriterion `json:"criteria"`
}

// ScreenAndRankRequest screens with granular criteria, then ranks the survivors
type ScreenAndRankRequest struct {
	Criteria          []screener.RawCriterion `json:"criteria"`
	TopNCriteria      string                  `json:"topNCriteria"`
	N                 int                     `json:"n"`
	OrderDirection    string                  `json:"orderDirection"`
	MarketCapCategory string                  `json:"marketCapCategory"`
}

// ScreenerHandler serves indicator screens
// ⭐ SSOT: 스크리너 API 핸들러는 이 구조체에서만
type ScreenerHandler struct {
	screener *screener.Service
	ranking  *ranking.Service
	logger   *logger.Logger
}

// NewScreenerHandler creates a new screener handler
func NewScreenerHandler(screen *screener.Service, rank *ranking.Service, log *logger.Logger) *ScreenerHandler {
	return &ScreenerHandler{
		screener: screen,
		ranking:  rank,
		logger:   log,
	}
}

// BasicScreen applies fixed predicates (close < MA, ...)
// POST /api/stocks/screener
func (h *ScreenerHandler) BasicScreen(w http.ResponseWriter, r *http.Request) {
	h.screen(w, r, screener.ModeBasic)
}

// GranularScreen applies caller-chosen operators
// POST /api/stocks/granular-screener
func (h *ScreenerHandler) GranularScreen(w http.ResponseWriter, r *http.Request) {
	h.screen(w, r, screener.ModeGranular)
}

func (h *ScreenerHandler) screen(w http.ResponseWriter, r *http.Request, mode screener.Mode) {
	var req ScreenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, h.logger, err, "screener results")
		return
	}

	criteria, err := h.screener.Parse(req.Criteria, mode)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "screener results")
		return
	}

	result, err := h.screener.Screen(r.Context(), criteria, mode)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "screener results")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: result.Rows})
}

// GranularAndTopN ranks the stocks passing a granular screen
// POST /api/stocks/granularandtopn
func (h *ScreenerHandler) GranularAndTopN(w http.ResponseWriter, r *http.Request) {
	var req ScreenAndRankRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, h.logger, err, "ranked screener results")
		return
	}

	criteria, err := h.screener.Parse(req.Criteria, screener.ModeGranular)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "ranked screener results")
		return
	}

	rankReq, err := rankingRequest(req.TopNCriteria, req.OrderDirection, req.N, req.MarketCapCategory)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "ranked screener results")
		return
	}

	rows, err := h.ranking.ScreenAndRank(r.Context(), criteria, rankReq)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "ranked screener results")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: rows})
}

// rankingRequest parses the shared ranking parameters
func rankingRequest(metricName, direction string, limit int, category string) (ranking.Request, error) {
	dir, err := contracts.ParseDirection(direction)
	if err != nil {
		return ranking.Request{}, err
	}
	cat, err := contracts.ParseCategory(category)
	if err != nil {
		return ranking.Request{}, err
	}
	return ranking.Request{
		Metric:    metricName,
		Direction: dir,
		Limit:     limit,
		Category:  cat,
	}, nil
}
