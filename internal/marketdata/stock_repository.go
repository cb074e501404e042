package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscope/internal/contracts"
)

// StockRepository implements contracts.StockRepository
// ⭐ SSOT: 종목 마스터 조회는 여기서만
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// ListStocks returns every stock ordered by ticker
func (r *StockRepository) ListStocks(ctx context.Context) ([]contracts.Stock, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, ticker FROM stock ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]contracts.Stock, 0)
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(&s.ID, &s.Ticker); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// GetStock returns one stock or contracts.ErrNotFound
func (r *StockRepository) GetStock(ctx context.Context, id int64) (*contracts.Stock, error) {
	var s contracts.Stock
	err := r.pool.QueryRow(ctx, `SELECT id, ticker FROM stock WHERE id = $1`, id).Scan(&s.ID, &s.Ticker)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("stock %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stock %d: %w", id, err)
	}
	return &s, nil
}
