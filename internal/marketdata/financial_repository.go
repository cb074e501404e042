package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscope/internal/contracts"
)

// FinancialRepository implements contracts.FinancialRepository
// ⭐ SSOT: 재무제표 조회는 여기서만
type FinancialRepository struct {
	pool *pgxpool.Pool
}

// NewFinancialRepository creates a new financials repository
func NewFinancialRepository(pool *pgxpool.Pool) *FinancialRepository {
	return &FinancialRepository{pool: pool}
}

func scanStatement(row pgx.Row) (contracts.FinancialStatement, error) {
	var (
		s    contracts.FinancialStatement
		kind string
		raw  []byte
	)
	if err := row.Scan(&s.StockID, &s.Date, &kind, &raw); err != nil {
		return s, err
	}

	s.Type = contracts.StatementType(kind)
	items, err := contracts.ParseLineItems(raw)
	if err != nil {
		return s, fmt.Errorf("stock %d %s %s: %w", s.StockID, kind, s.Date.Format("2006-01-02"), err)
	}
	s.Items = items
	return s, nil
}

func collectStatements(rows pgx.Rows) ([]contracts.FinancialStatement, error) {
	defer rows.Close()

	out := make([]contracts.FinancialStatement, 0)
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestStatement returns the max-date statement of one stock and type or contracts.ErrNotFound
func (r *FinancialRepository) LatestStatement(ctx context.Context, id int64, statementType contracts.StatementType) (*contracts.FinancialStatement, error) {
	query := `
		SELECT stock_id, date, statement_type, data
		FROM financials
		WHERE stock_id = $1 AND statement_type = $2
		ORDER BY date DESC
		LIMIT 1`

	s, err := scanStatement(r.pool.QueryRow(ctx, query, id, string(statementType)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s of stock %d: %w", statementType, id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s for stock %d: %w", statementType, id, err)
	}
	return &s, nil
}

// LatestStatements returns the max-date statement of the given type per stock
func (r *FinancialRepository) LatestStatements(ctx context.Context, ids []int64, statementType contracts.StatementType) (map[int64]contracts.FinancialStatement, error) {
	query := `
		SELECT DISTINCT ON (stock_id) stock_id, date, statement_type, data
		FROM financials
		WHERE statement_type = $1
		  AND ($2::bigint[] IS NULL OR stock_id = ANY($2))
		ORDER BY stock_id, date DESC`

	rows, err := r.pool.Query(ctx, query, string(statementType), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s: %w", statementType, err)
	}

	statements, err := collectStatements(rows)
	if err != nil {
		return nil, err
	}

	latest := make(map[int64]contracts.FinancialStatement, len(statements))
	for _, s := range statements {
		latest[s.StockID] = s
	}
	return latest, nil
}

// GetByStocks returns every statement of the given stocks
func (r *FinancialRepository) GetByStocks(ctx context.Context, ids []int64) ([]contracts.FinancialStatement, error) {
	query := `
		SELECT stock_id, date, statement_type, data
		FROM financials
		WHERE stock_id = ANY($1)
		ORDER BY stock_id, date, statement_type`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	return collectStatements(rows)
}

// GetByStock returns every statement of one stock, newest first
func (r *FinancialRepository) GetByStock(ctx context.Context, id int64) ([]contracts.FinancialStatement, error) {
	query := `
		SELECT stock_id, date, statement_type, data
		FROM financials
		WHERE stock_id = $1
		ORDER BY date DESC, statement_type`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements for stock %d: %w", id, err)
	}
	return collectStatements(rows)
}
