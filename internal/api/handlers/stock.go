package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/pkg/logger"
)

const (
	defaultDailyLimit   = 365
	defaultBreadthLimit = 30
	maxListLimit        = 5000
)

// StockHandler serves entity browsing endpoints
// ⭐ SSOT: 종목 데이터 API 핸들러는 이 구조체에서만
type StockHandler struct {
	stocks       contracts.StockRepository
	prices       contracts.PriceRepository
	fundamentals contracts.FundamentalRepository
	financials   contracts.FinancialRepository
	logger       *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(
	stocks contracts.StockRepository,
	prices contracts.PriceRepository,
	fundamentals contracts.FundamentalRepository,
	financials contracts.FinancialRepository,
	log *logger.Logger,
) *StockHandler {
	return &StockHandler{
		stocks:       stocks,
		prices:       prices,
		fundamentals: fundamentals,
		financials:   financials,
		logger:       log,
	}
}

// ListStocks returns every stock
// GET /api/stocks
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.stocks.ListStocks(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "stocks")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: stocks})
}

// GetStock returns one stock
// GET /api/stocks/{id}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "stock")
		return
	}

	stock, err := h.stocks.GetStock(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "stock")
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// GetDailyPrices returns bars newest first
// GET /api/stocks/{id}/daily?limit=365
func (h *StockHandler) GetDailyPrices(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "daily prices")
		return
	}

	limit, err := queryLimit(r, defaultDailyLimit)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "daily prices")
		return
	}

	bars, err := h.prices.GetByStock(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "daily prices")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: bars})
}

// GetFundamentals returns snapshots newest first
// GET /api/stocks/{id}/fundamentals
func (h *StockHandler) GetFundamentals(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "fundamentals")
		return
	}

	snaps, err := h.fundamentals.GetByStock(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "fundamentals")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: snaps})
}

// GetFinancials returns statements newest first
// GET /api/stocks/{id}/financials
func (h *StockHandler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financials")
		return
	}

	stmts, err := h.financials.GetByStock(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financials")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: stmts})
}

// GetLatestFundamentals returns the newest snapshot
// GET /api/stocks/{id}/fundamentals/latest
func (h *StockHandler) GetLatestFundamentals(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "fundamentals")
		return
	}

	snap, err := h.fundamentals.LatestSnapshot(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "fundamentals")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GetLatestFinancial returns the newest statement of one type
// GET /api/stocks/{id}/financials/latest?type=income_statement
func (h *StockHandler) GetLatestFinancial(w http.ResponseWriter, r *http.Request) {
	id, err := stockID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financials")
		return
	}

	raw := r.URL.Query().Get("type")
	if raw == "" {
		raw = string(contracts.IncomeStatement)
	}
	statementType, err := contracts.ParseStatementType(raw)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financials")
		return
	}

	stmt, err := h.financials.LatestStatement(r.Context(), id, statementType)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "financials")
		return
	}
	respondJSON(w, http.StatusOK, stmt)
}

// GetAdvancesDeclines returns market breadth per trading date, newest first
// GET /api/stocks/advances-declines?limit=30
func (h *StockHandler) GetAdvancesDeclines(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultBreadthLimit)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "advances and declines")
		return
	}

	rows, err := h.prices.AdvancesDeclines(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "advances and declines")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Data: rows})
}

func stockID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, contracts.NewValidationError("id", "stock id must be a positive integer, got %q", raw)
	}
	return id, nil
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, contracts.NewValidationError("limit", "must be a positive integer, got %q", raw)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
