package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/stockscope/internal/api/handlers"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/logger"
)

// Pinger reports backend liveness for /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups every endpoint handler
type Handlers struct {
	Stocks   *handlers.StockHandler
	Screener *handlers.ScreenerHandler
	Ranking  *handlers.RankingHandler
	Summary  *handlers.SummaryHandler
	WS       *handlers.WSHandler
}

// NewRouter creates and configures the HTTP router. db and reg may be nil.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, db Pinger, reg *metrics.Registry, cfg config.APIConfig, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler(db)).Methods(http.MethodGet)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	}
	r.HandleFunc("/ws", h.WS.ServeWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Static paths before {id} so they are never parsed as ids
	stocks := api.PathPrefix("/stocks").Subrouter()
	stocks.HandleFunc("", h.Stocks.ListStocks).Methods(http.MethodGet)
	stocks.HandleFunc("/advances-declines", h.Stocks.GetAdvancesDeclines).Methods(http.MethodGet)
	stocks.HandleFunc("/screener", h.Screener.BasicScreen).Methods(http.MethodPost)
	stocks.HandleFunc("/granular-screener", h.Screener.GranularScreen).Methods(http.MethodPost)
	stocks.HandleFunc("/granularandtopn", h.Screener.GranularAndTopN).Methods(http.MethodPost)
	stocks.HandleFunc("/top-n-individual", h.Ranking.TopNIndividual).Methods(http.MethodPost)
	stocks.HandleFunc("/top/{metric}/{order}/{limit}", h.Ranking.GetTop).Methods(http.MethodGet)
	stocks.HandleFunc("/financialsummary", h.Summary.GetSummary).Methods(http.MethodGet)
	stocks.HandleFunc("/financialsummary/latest", h.Summary.GetLatestSummary).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}", h.Stocks.GetStock).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}/daily", h.Stocks.GetDailyPrices).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}/fundamentals", h.Stocks.GetFundamentals).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}/fundamentals/latest", h.Stocks.GetLatestFundamentals).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}/financials", h.Stocks.GetFinancials).Methods(http.MethodGet)
	stocks.HandleFunc("/{id:[0-9]+}/financials/latest", h.Stocks.GetLatestFinancial).Methods(http.MethodGet)

	api.HandleFunc("/metrics/catalog", h.Ranking.GetCatalog).Methods(http.MethodGet)

	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log))
	r.Use(metrics.HTTPMiddleware(reg))
	r.Use(rateLimitMiddleware(cfg))

	return corsMiddleware(cfg.AllowedOrigin, r)
}

// healthCheckHandler returns server health status
func healthCheckHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":  "ok",
			"service": "stockscope-api",
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
