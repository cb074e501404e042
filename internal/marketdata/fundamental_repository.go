package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscope/internal/contracts"
)

// FundamentalRepository implements contracts.FundamentalRepository
type FundamentalRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalRepository creates a new fundamentals repository
func NewFundamentalRepository(pool *pgxpool.Pool) *FundamentalRepository {
	return &FundamentalRepository{pool: pool}
}

func scanSnapshot(row pgx.Row) (contracts.FundamentalSnapshot, error) {
	var f contracts.FundamentalSnapshot
	err := row.Scan(&f.StockID, &f.Date, &f.MarketCap, &f.TrailingPE, &f.PriceToBook)
	return f, err
}

// LatestSnapshot returns the max-date snapshot of one stock or contracts.ErrNotFound
func (r *FundamentalRepository) LatestSnapshot(ctx context.Context, id int64) (*contracts.FundamentalSnapshot, error) {
	query := `
		SELECT stock_id, date, market_cap, trailing_pe, price_to_book
		FROM fundamentals
		WHERE stock_id = $1
		ORDER BY date DESC
		LIMIT 1`

	f, err := scanSnapshot(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fundamentals of stock %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest fundamentals for stock %d: %w", id, err)
	}
	return &f, nil
}

// LatestSnapshots returns the max-date snapshot per stock
func (r *FundamentalRepository) LatestSnapshots(ctx context.Context, ids []int64) (map[int64]contracts.FundamentalSnapshot, error) {
	query := `
		SELECT DISTINCT ON (stock_id) stock_id, date, market_cap, trailing_pe, price_to_book
		FROM fundamentals
		WHERE ($1::bigint[] IS NULL OR stock_id = ANY($1))
		ORDER BY stock_id, date DESC`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest fundamentals: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]contracts.FundamentalSnapshot)
	for rows.Next() {
		f, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals: %w", err)
		}
		latest[f.StockID] = f
	}
	return latest, rows.Err()
}

// GetByStock returns every snapshot of one stock, newest first
func (r *FundamentalRepository) GetByStock(ctx context.Context, id int64) ([]contracts.FundamentalSnapshot, error) {
	query := `
		SELECT stock_id, date, market_cap, trailing_pe, price_to_book
		FROM fundamentals
		WHERE stock_id = $1
		ORDER BY date DESC`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamentals for stock %d: %w", id, err)
	}
	defer rows.Close()

	out := make([]contracts.FundamentalSnapshot, 0)
	for rows.Next() {
		f, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
