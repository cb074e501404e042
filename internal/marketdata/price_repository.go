package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscope/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository
// ⭐ SSOT: 가격 데이터 조회는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

const barColumns = `
	stock_id, date,
	COALESCE(open, 0), COALESCE(high, 0), COALESCE(low, 0), close,
	COALESCE(volume, 0), COALESCE(dividends, 0), COALESCE(stock_splits, 0)`

func scanBar(row pgx.Row) (contracts.PriceBar, error) {
	var b contracts.PriceBar
	err := row.Scan(&b.StockID, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Dividends, &b.StockSplits)
	return b, err
}

// GetSeriesSince loads every stock's bars on or after from in one round trip.
// Bars without a close are skipped.
func (r *PriceRepository) GetSeriesSince(ctx context.Context, from time.Time) (map[int64][]contracts.PriceBar, error) {
	query := `SELECT ` + barColumns + `
		FROM stockdata
		WHERE date >= $1 AND close IS NOT NULL
		ORDER BY stock_id, date ASC`

	rows, err := r.pool.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query price series: %w", err)
	}
	defer rows.Close()

	series := make(map[int64][]contracts.PriceBar)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		series[b.StockID] = append(series[b.StockID], b)
	}
	return series, rows.Err()
}

// GetByStock returns the newest limit bars of one stock, newest first
func (r *PriceRepository) GetByStock(ctx context.Context, id int64, limit int) ([]contracts.PriceBar, error) {
	query := `SELECT ` + barColumns + `
		FROM stockdata
		WHERE stock_id = $1 AND close IS NOT NULL
		ORDER BY date DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars for stock %d: %w", id, err)
	}
	defer rows.Close()

	bars := make([]contracts.PriceBar, 0)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestBars returns the most recent bar per stock
func (r *PriceRepository) LatestBars(ctx context.Context, ids []int64) (map[int64]contracts.PriceBar, error) {
	query := `SELECT DISTINCT ON (stock_id) ` + barColumns + `
		FROM stockdata
		WHERE ($1::bigint[] IS NULL OR stock_id = ANY($1)) AND close IS NOT NULL
		ORDER BY stock_id, date DESC`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest bars: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]contracts.PriceBar)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		latest[b.StockID] = b
	}
	return latest, rows.Err()
}

// AdvancesDeclines counts up closes and down closes per trading date, newest first
func (r *PriceRepository) AdvancesDeclines(ctx context.Context, limit int) ([]contracts.AdvanceDecline, error) {
	query := `
		SELECT
			date,
			COUNT(*) FILTER (WHERE close > open) AS advances,
			COUNT(*) FILTER (WHERE close < open) AS declines
		FROM stockdata
		GROUP BY date
		ORDER BY date DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query advances/declines: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.AdvanceDecline, 0)
	for rows.Next() {
		var ad contracts.AdvanceDecline
		if err := rows.Scan(&ad.Date, &ad.Advances, &ad.Declines); err != nil {
			return nil, fmt.Errorf("failed to scan advances/declines: %w", err)
		}
		out = append(out, ad)
	}
	return out, rows.Err()
}
