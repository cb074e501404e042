package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscope/internal/contracts"
)

// SummaryRepository implements contracts.SummaryRepository
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Save upserts the summary for (date, category)
func (r *SummaryRepository) Save(ctx context.Context, date time.Time, summary *contracts.FinancialSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO financial_summary (summary_date, category, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (summary_date, category) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, date, string(summary.Category), data); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Latest returns the most recently crunched summary of a category
func (r *SummaryRepository) Latest(ctx context.Context, category contracts.MarketCapCategory) (*contracts.StoredSummary, error) {
	query := `
		SELECT summary_date, data, updated_at
		FROM financial_summary
		WHERE category = $1
		ORDER BY summary_date DESC
		LIMIT 1`

	var (
		stored contracts.StoredSummary
		raw    []byte
	)
	err := r.pool.QueryRow(ctx, query, string(category)).Scan(&stored.Date, &raw, &stored.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", category, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	if err := json.Unmarshal(raw, &stored.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &stored, nil
}
