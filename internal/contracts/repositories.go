package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만
// "Latest" always means the record with the max date per entity (and statement type).
// A nil ids slice means every stock.

// StockRepository reads the entity master
type StockRepository interface {
	ListStocks(ctx context.Context) ([]Stock, error)
	GetStock(ctx context.Context, id int64) (*Stock, error)
}

// PriceRepository reads daily bars
type PriceRepository interface {
	// GetSeriesSince returns date-ascending bars per stock on or after from
	GetSeriesSince(ctx context.Context, from time.Time) (map[int64][]PriceBar, error)
	// GetByStock returns bars newest first
	GetByStock(ctx context.Context, id int64, limit int) ([]PriceBar, error)
	LatestBars(ctx context.Context, ids []int64) (map[int64]PriceBar, error)
	AdvancesDeclines(ctx context.Context, limit int) ([]AdvanceDecline, error)
}

// FundamentalRepository reads valuation snapshots
type FundamentalRepository interface {
	// LatestSnapshot returns one stock's max-date snapshot or ErrNotFound
	LatestSnapshot(ctx context.Context, id int64) (*FundamentalSnapshot, error)
	LatestSnapshots(ctx context.Context, ids []int64) (map[int64]FundamentalSnapshot, error)
	GetByStock(ctx context.Context, id int64) ([]FundamentalSnapshot, error)
}

// FinancialRepository reads financial statements
type FinancialRepository interface {
	// LatestStatement returns one stock's max-date statement of the type or ErrNotFound
	LatestStatement(ctx context.Context, id int64, statementType StatementType) (*FinancialStatement, error)
	LatestStatements(ctx context.Context, ids []int64, statementType StatementType) (map[int64]FinancialStatement, error)
	// GetByStocks returns every statement of the given stocks
	GetByStocks(ctx context.Context, ids []int64) ([]FinancialStatement, error)
	GetByStock(ctx context.Context, id int64) ([]FinancialStatement, error)
}

// SummaryRepository persists crunched financial summaries
type SummaryRepository interface {
	Save(ctx context.Context, date time.Time, summary *FinancialSummary) error
	Latest(ctx context.Context, category MarketCapCategory) (*StoredSummary, error)
}
