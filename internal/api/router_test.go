package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/internal/aggregate"
	"github.com/wonny/stockscope/internal/api/handlers"
	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/indicator"
	"github.com/wonny/stockscope/internal/marketdata/memstore"
	"github.com/wonny/stockscope/internal/metric"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/internal/ranking"
	"github.com/wonny/stockscope/internal/screener"
	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/logger"
)

var asOf = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// newStore: AAA close=100 MA20≈90, BBB close=80 MA20≈90
func newStore() *memstore.Store {
	store := memstore.New().AddStock(1, "AAA").AddStock(2, "BBB")
	for i := 0; i < 21; i++ {
		day := asOf.AddDate(0, 0, i-20)
		a, b := 89.5, 90.5
		if i == 20 {
			a, b = 100, 80
		}
		store.AddBars(
			contracts.PriceBar{StockID: 1, Date: day, Open: 89.5, Close: a},
			contracts.PriceBar{StockID: 2, Date: day, Open: 90.5, Close: b},
		)
	}
	store.AddSnapshots(
		contracts.FundamentalSnapshot{StockID: 1, Date: asOf, MarketCap: null.FloatFrom(3e11), TrailingPE: null.FloatFrom(20)},
		contracts.FundamentalSnapshot{StockID: 2, Date: asOf, MarketCap: null.FloatFrom(1e9)},
	)
	store.AddStatements(
		contracts.FinancialStatement{StockID: 1, Type: contracts.IncomeStatement, Date: asOf, Items: map[string]float64{
			contracts.LineNetIncome: 300, contracts.LineTotalRevenue: 3000, contracts.LineBasicEPS: 3,
		}},
		contracts.FinancialStatement{StockID: 2, Type: contracts.IncomeStatement, Date: asOf, Items: map[string]float64{
			contracts.LineNetIncome: 10, contracts.LineBasicEPS: 0.5,
		}},
	)
	return store
}

type testEnv struct {
	store   *memstore.Store
	reg     *metrics.Registry
	handler http.Handler
}

func newEnv(t *testing.T, apiCfg config.APIConfig, aggTimeout time.Duration) *testEnv {
	t.Helper()

	store := newStore()
	log := logger.Nop()
	reg := metrics.NewRegistry()
	clock := func() time.Time { return asOf }

	screen := screener.NewService(store, store, store.Fundamentals(), indicator.LookbackDays, log).WithClock(clock)
	rank := ranking.NewService(metric.DefaultCatalog(), store, store, store.Fundamentals(), store.Financials(), screen, log)
	agg := aggregate.NewAggregator(store.Financials(), config.AggregateConfig{BatchSize: 1, Parallelism: 1, Timeout: aggTimeout}, log)
	summary := aggregate.NewService(store, store.Fundamentals(), store.Summaries(), agg, log).WithClock(clock)

	h := Handlers{
		Stocks:   handlers.NewStockHandler(store, store, store.Fundamentals(), store.Financials(), log),
		Screener: handlers.NewScreenerHandler(screen, rank, log),
		Ranking:  handlers.NewRankingHandler(rank, log),
		Summary:  handlers.NewSummaryHandler(summary, log),
		WS:       handlers.NewWSHandler(summary, "*", reg, log),
	}

	return &testEnv{store: store, reg: reg, handler: NewRouter(h, nil, reg, apiCfg, log)}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.ErrorResponse
	decode(t, w, &resp)
	return resp.Error
}

func TestHealth(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStocks(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodGet, "/api/stocks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct{ Data []contracts.Stock }
	decode(t, w, &list)
	assert.Len(t, list.Data, 2)

	w = env.do(http.MethodGet, "/api/stocks/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ticker":"BBB"`)

	w = env.do(http.MethodGet, "/api/stocks/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorOf(t, w))

	w = env.do(http.MethodGet, "/api/stocks/1/daily?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bars struct{ Data []contracts.PriceBar }
	decode(t, w, &bars)
	require.Len(t, bars.Data, 3)
	assert.True(t, bars.Data[0].Date.Equal(asOf), "newest first")

	w = env.do(http.MethodGet, "/api/stocks/1/daily?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "invalid limit")

	w = env.do(http.MethodGet, "/api/stocks/advances-declines?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var breadth struct{ Data []contracts.AdvanceDecline }
	decode(t, w, &breadth)
	require.Len(t, breadth.Data, 1)
	assert.Equal(t, 1, breadth.Data[0].Advances)
	assert.Equal(t, 1, breadth.Data[0].Declines)
}

func TestStockLatestRecords(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)
	env.store.AddSnapshots(contracts.FundamentalSnapshot{StockID: 1, Date: asOf.AddDate(0, 0, -30), MarketCap: null.FloatFrom(1)})

	w := env.do(http.MethodGet, "/api/stocks/1/fundamentals/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap contracts.FundamentalSnapshot
	decode(t, w, &snap)
	assert.True(t, snap.Date.Equal(asOf), "max-date snapshot")
	assert.Equal(t, 3e11, snap.MarketCap.Float64)

	w = env.do(http.MethodGet, "/api/stocks/2/financials/latest?type=income_statement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stmt contracts.FinancialStatement
	decode(t, w, &stmt)
	eps, ok := stmt.LineItem(contracts.LineBasicEPS)
	assert.True(t, ok)
	assert.Equal(t, 0.5, eps)

	w = env.do(http.MethodGet, "/api/stocks/2/financials/latest?type=balance_sheet", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/stocks/2/financials/latest?type=ledger", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "statement_type")

	w = env.do(http.MethodGet, "/api/stocks/99/fundamentals/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDataSourceFailureIsGeneric(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)
	env.store.Err = errors.New("pq: connection refused to 10.0.0.5")

	w := env.do(http.MethodGet, "/api/stocks", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to load stocks", errorOf(t, w))
}

func TestBasicScreener(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodPost, "/api/stocks/screener", map[string]interface{}{
		"criteria": []map[string]interface{}{{"type": "ma", "period": 20}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct{ Data []screener.Row }
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "BBB", resp.Data[0].Ticker)
	assert.Nil(t, resp.Data[0].Fundamentals)
}

func TestGranularScreener(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodPost, "/api/stocks/granular-screener", map[string]interface{}{
		"criteria": []map[string]interface{}{{"type": "ma", "period": 20, "operator": "greater_than"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct{ Data []screener.Row }
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAA", resp.Data[0].Ticker)
	require.NotNil(t, resp.Data[0].Fundamentals)
}

func TestScreenerValidation(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodPost, "/api/stocks/granular-screener", map[string]interface{}{
		"criteria": []map[string]interface{}{{"type": "ma", "period": 20}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "criteria[0].operator")

	w = env.do(http.MethodPost, "/api/stocks/screener", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "invalid body")
}

func TestTopDetailed(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodGet, "/api/stocks/top/eps/top/5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct{ Data []map[string]interface{} }
	decode(t, w, &resp)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "AAA", resp.Data[0]["ticker"])
	assert.Equal(t, 100.0, resp.Data[0]["last_close_price"])
	assert.Equal(t, 20.0, resp.Data[0]["latest_trailing_pe"])
	assert.Nil(t, resp.Data[0]["latest_total_debt"])

	w = env.do(http.MethodGet, "/api/stocks/top/eps/last/1?marketCapCategory=microcap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "BBB", resp.Data[0]["ticker"])
}

func TestRankingValidation(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   string
	}{
		{"zero limit", http.MethodGet, "/api/stocks/top/eps/top/0", nil, "invalid limit"},
		{"non numeric limit", http.MethodGet, "/api/stocks/top/eps/top/ten", nil, "invalid limit"},
		{"bad order", http.MethodGet, "/api/stocks/top/eps/middle/5", nil, "invalid orderDirection"},
		{"bad category", http.MethodGet, "/api/stocks/top/eps/top/5?marketCapCategory=giant", nil, "invalid marketCapCategory"},
		{"unknown metric", http.MethodPost, "/api/stocks/top-n-individual", map[string]interface{}{"criteria": "vibes", "n": 5}, "invalid metric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorOf(t, w), tt.want)
		})
	}
}

func TestTopNIndividualAndGranularTopN(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodPost, "/api/stocks/top-n-individual", map[string]interface{}{
		"criteria": "market_cap", "n": 1, "orderDirection": "ASC",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct{ Data []ranking.Row }
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "BBB", resp.Data[0].Ticker)

	w = env.do(http.MethodPost, "/api/stocks/granularandtopn", map[string]interface{}{
		"criteria":       []map[string]interface{}{{"type": "ma", "period": 20, "operator": "greater_than"}},
		"topNCriteria":   "eps",
		"n":              10,
		"orderDirection": "DESC",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAA", resp.Data[0].Ticker)
}

func TestFinancialSummary(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodGet, "/api/stocks/financialsummary?marketCapCategory=largecap", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary contracts.FinancialSummary
	decode(t, w, &summary)
	assert.Equal(t, 1, summary.StockCount)
	assert.Equal(t, 300.0, summary.TotalProfit)
	assert.True(t, summary.AvgProfitPerMcap.Valid)
	assert.Equal(t, null.FloatFrom(0), summary.AvgDebtPerMcap)

	w = env.do(http.MethodGet, "/api/stocks/financialsummary?marketCapCategory=nano", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/stocks/financialsummary/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinancialSummaryTimeout(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, 10*time.Millisecond)
	env.store.StatementDelay = 200 * time.Millisecond

	w := env.do(http.MethodGet, "/api/stocks/financialsummary", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "financial summary timed out", errorOf(t, w))
}

func TestCatalog(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	w := env.do(http.MethodGet, "/api/metrics/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"market_cap_revenue"`)
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t, config.APIConfig{AllowedOrigin: "https://dash.example.com"}, time.Minute)

	w := env.do(http.MethodOptions, "/api/stocks/screener", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	env := newEnv(t, config.APIConfig{RateLimit: 0.001, RateBurst: 1}, time.Minute)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", nil).Code)
	w := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", errorOf(t, w))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)

	env.do(http.MethodGet, "/api/stocks/1", nil)
	w := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/stocks/{id:[0-9]+}",status="2xx"} 1`)
}

func TestPushChannel(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "financialSummary", "marketCapCategory": "microcap"}))
	var summary contracts.FinancialSummary
	require.NoError(t, conn.ReadJSON(&summary))
	assert.Equal(t, contracts.CategoryMicroCap, summary.Category)
	assert.Equal(t, 10.0, summary.TotalProfit)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	var reply handlers.ErrorResponse
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Unknown message type", reply.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Error handling message", reply.Error)
}

func wsConnections(reg *metrics.Registry) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == "stockscope_ws_connections" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func TestPushChannelBusyAndDisconnect(t *testing.T) {
	env := newEnv(t, config.APIConfig{}, time.Minute)
	env.store.StatementDelay = 5 * time.Second
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	// one in flight, one queued, the rest answered right away
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "financialSummary"}))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply handlers.ErrorResponse
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Previous message still processing", reply.Error)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return wsConnections(env.reg) == 0 },
		2*time.Second, 20*time.Millisecond, "closing the connection cancels the running summary")
}
