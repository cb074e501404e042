package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/metric"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/internal/screener"
	"github.com/wonny/stockscope/pkg/logger"
)

// Row is one ranked stock
type Row struct {
	Rank    int       `json:"rank"`
	StockID int64     `json:"stock_id"`
	Ticker  string    `json:"ticker"`
	Value   float64   `json:"value"`
	AsOf    time.Time `json:"as_of"`

	*Details
}

// Details is the extra payload of the detailed top/last N listing
type Details struct {
	LastClosePrice     null.Float `json:"last_close_price"`
	LatestMarketCap    null.Float `json:"latest_market_cap"`
	LatestTrailingPE   null.Float `json:"latest_trailing_pe"`
	LatestPriceToBook  null.Float `json:"latest_price_to_book"`
	LatestEPS          null.Float `json:"latest_eps"`
	LatestGrossProfit  null.Float `json:"latest_gross_profit"`
	LatestTotalDebt    null.Float `json:"latest_total_debt"`
	LatestTotalRevenue null.Float `json:"latest_total_revenue"`
}

// Service ranks stocks by catalog metrics
// ⭐ SSOT: 랭킹 로직은 여기서만
type Service struct {
	catalog      *metric.Catalog
	stocks       contracts.StockRepository
	prices       contracts.PriceRepository
	fundamentals contracts.FundamentalRepository
	financials   contracts.FinancialRepository
	screener     *screener.Service
	metrics      *metrics.Registry
	logger       *logger.Logger
}

// NewService creates a new ranking service
func NewService(
	catalog *metric.Catalog,
	stocks contracts.StockRepository,
	prices contracts.PriceRepository,
	fundamentals contracts.FundamentalRepository,
	financials contracts.FinancialRepository,
	screen *screener.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		catalog:      catalog,
		stocks:       stocks,
		prices:       prices,
		fundamentals: fundamentals,
		financials:   financials,
		screener:     screen,
		logger:       log.WithComponent("ranking"),
	}
}

// WithMetrics attaches Prometheus instrumentation
func (s *Service) WithMetrics(reg *metrics.Registry) *Service {
	s.metrics = reg
	return s
}

// Catalog exposes the metric catalog
func (s *Service) Catalog() *metric.Catalog {
	return s.catalog
}

// Rank returns the top (DESC) or last (ASC) N stocks for a metric
func (s *Service) Rank(ctx context.Context, req Request) ([]Row, error) {
	d, err := req.Validate(s.catalog)
	if err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = contracts.CategoryAll
	}
	if req.StockIDs != nil && len(req.StockIDs) == 0 {
		return []Row{}, nil
	}

	stocks, err := s.stocks.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })

	data, err := s.load(ctx, d.Requirements(), req)
	if err != nil {
		return nil, err
	}

	var allowed map[int64]struct{}
	if req.StockIDs != nil {
		allowed = make(map[int64]struct{}, len(req.StockIDs))
		for _, id := range req.StockIDs {
			allowed[id] = struct{}{}
		}
	}

	entries := make([]Entry, 0, len(stocks))
	for _, st := range stocks {
		if allowed != nil {
			if _, ok := allowed[st.ID]; !ok {
				continue
			}
		}
		e := data.entity(st.ID)
		if !qualifies(e, req) {
			continue
		}
		v, ok := d.Resolve(e)
		entries = append(entries, Entry{StockID: st.ID, Value: v.Value, AsOf: v.AsOf, Present: ok})
	}

	ranked := Rank(entries, req.Direction, req.Limit)

	tickers := make(map[int64]string, len(stocks))
	for _, st := range stocks {
		tickers[st.ID] = st.Ticker
	}

	rows := make([]Row, len(ranked))
	for i, e := range ranked {
		rows[i] = Row{
			Rank:    i + 1,
			StockID: e.StockID,
			Ticker:  tickers[e.StockID],
			Value:   e.Value,
			AsOf:    e.AsOf,
		}
		if req.WithDetails {
			rows[i].Details = data.details(e.StockID)
		}
	}

	s.metrics.RecordRanking(d.Name, string(req.Direction))
	s.logger.WithFields(map[string]interface{}{
		"metric":     d.Name,
		"direction":  string(req.Direction),
		"category":   string(req.Category),
		"limit":      req.Limit,
		"candidates": len(entries),
		"ranked":     len(rows),
	}).Info("Ranking completed")

	return rows, nil
}

// ScreenAndRank ranks only the stocks passing every criterion
func (s *Service) ScreenAndRank(ctx context.Context, criteria []screener.Criterion, req Request) ([]Row, error) {
	if _, err := req.Validate(s.catalog); err != nil {
		return nil, err
	}
	if s.screener == nil {
		return nil, fmt.Errorf("screener is not configured")
	}

	ids, err := s.screener.FilterIDs(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to screen: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}

	req.StockIDs = ids
	return s.Rank(ctx, req)
}

// latest holds the latest record per dimension for the ranked universe
type latest struct {
	snapshots  map[int64]contracts.FundamentalSnapshot
	statements map[contracts.StatementType]map[int64]contracts.FinancialStatement
	bars       map[int64]contracts.PriceBar
}

// load fetches only the dimensions the metric, the filters and the details need
func (s *Service) load(ctx context.Context, req metric.Requirements, r Request) (*latest, error) {
	needSnapshot := req.Snapshot || r.Category != contracts.CategoryAll || r.RequireMarketCap || r.WithDetails
	needBars := req.LastBar || r.WithDetails

	types := append([]contracts.StatementType{}, req.Statements...)
	if r.WithDetails {
		types = append(types, contracts.IncomeStatement, contracts.BalanceSheet)
	}

	ids := r.StockIDs
	out := &latest{statements: make(map[contracts.StatementType]map[int64]contracts.FinancialStatement)}

	if needSnapshot {
		snaps, err := s.fundamentals.LatestSnapshots(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest fundamentals: %w", err)
		}
		out.snapshots = snaps
	}

	for _, t := range types {
		if _, done := out.statements[t]; done {
			continue
		}
		stmts, err := s.financials.LatestStatements(ctx, ids, t)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest %s: %w", t, err)
		}
		out.statements[t] = stmts
	}

	if needBars {
		bars, err := s.prices.LatestBars(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest bars: %w", err)
		}
		out.bars = bars
	}

	return out, nil
}

func (l *latest) entity(id int64) metric.EntityData {
	e := metric.EntityData{Statements: make(map[contracts.StatementType]*contracts.FinancialStatement)}
	if snap, ok := l.snapshots[id]; ok {
		e.Snapshot = &snap
	}
	for t, byID := range l.statements {
		if st, ok := byID[id]; ok {
			st := st
			e.Statements[t] = &st
		}
	}
	if bar, ok := l.bars[id]; ok {
		e.LastBar = &bar
	}
	return e
}

func qualifies(e metric.EntityData, r Request) bool {
	var mc null.Float
	if e.Snapshot != nil {
		mc = e.Snapshot.MarketCap
	}
	if r.RequireMarketCap && (e.Snapshot == nil || !e.Snapshot.HasMarketCap()) {
		return false
	}
	return r.Category.Contains(mc)
}

func (l *latest) details(id int64) *Details {
	d := &Details{}
	if bar, ok := l.bars[id]; ok {
		d.LastClosePrice = null.FloatFrom(bar.Close)
	}
	if snap, ok := l.snapshots[id]; ok {
		d.LatestMarketCap = snap.MarketCap
		d.LatestTrailingPE = snap.TrailingPE
		d.LatestPriceToBook = snap.PriceToBook
	}

	item := func(t contracts.StatementType, name string) null.Float {
		st, ok := l.statements[t][id]
		if !ok {
			return null.Float{}
		}
		v, ok := st.LineItem(name)
		if !ok {
			return null.Float{}
		}
		return null.FloatFrom(v)
	}
	d.LatestEPS = item(contracts.IncomeStatement, contracts.LineBasicEPS)
	d.LatestGrossProfit = item(contracts.IncomeStatement, contracts.LineGrossProfit)
	d.LatestTotalRevenue = item(contracts.IncomeStatement, contracts.LineTotalRevenue)
	d.LatestTotalDebt = item(contracts.BalanceSheet, contracts.LineTotalDebt)
	return d
}
