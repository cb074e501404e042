package marketdata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/database"
)

// setupDB migrates the schema and seeds two stocks. Requires DATABASE_URL.
func setupDB(t *testing.T) (*pgxpool.Pool, [2]int64) {
	t.Helper()

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, db.MigrateUp(ctx))

	var ids [2]int64
	for i, ticker := range []string{"ZZTEST1", "ZZTEST2"} {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM stock WHERE ticker = $1`, ticker)
		require.NoError(t, db.Pool.QueryRow(ctx,
			`INSERT INTO stock (ticker) VALUES ($1) RETURNING id`, ticker).Scan(&ids[i]))
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM stock WHERE id = ANY($1)`, ids[:])
	})

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	for d := 1; d <= 3; d++ {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO stockdata (stock_id, date, open, high, low, close, volume) VALUES ($1, $2, $3, $3, $3, $4, 100)`,
			ids[0], day(d), 10.0, 10.0+float64(d))
		require.NoError(t, err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO fundamentals (stock_id, date, market_cap, trailing_pe) VALUES ($1, $2, 100, 10), ($1, $3, 200, NULL), ($4, $2, NULL, 5)`,
		ids[0], day(1), day(2), ids[1])
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO financials (stock_id, date, statement_type, data) VALUES
			($1, $2, 'income_statement', '{"Net Income": 5}'),
			($1, $3, 'income_statement', '{"Net Income": 7, "Basic EPS": null}'),
			($1, $3, 'balance_sheet', '{"Total Debt": 11}')`,
		ids[0], day(1), day(2))
	require.NoError(t, err)

	return db.Pool, ids
}

func TestRepositories_Latest(t *testing.T) {
	pool, ids := setupDB(t)
	ctx := context.Background()

	snaps, err := NewFundamentalRepository(pool).LatestSnapshots(ctx, ids[:])
	require.NoError(t, err)
	require.Contains(t, snaps, ids[0])
	assert.Equal(t, 200.0, snaps[ids[0]].MarketCap.Float64)
	assert.False(t, snaps[ids[0]].TrailingPE.Valid)
	assert.False(t, snaps[ids[1]].MarketCap.Valid)

	incomes, err := NewFinancialRepository(pool).LatestStatements(ctx, ids[:], contracts.IncomeStatement)
	require.NoError(t, err)
	v, ok := incomes[ids[0]].LineItem(contracts.LineNetIncome)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
	_, ok = incomes[ids[0]].LineItem(contracts.LineBasicEPS)
	assert.False(t, ok)

	all, err := NewFinancialRepository(pool).GetByStocks(ctx, ids[:])
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bars, err := NewPriceRepository(pool).LatestBars(ctx, ids[:])
	require.NoError(t, err)
	assert.Equal(t, 13.0, bars[ids[0]].Close)
	assert.NotContains(t, bars, ids[1])
}

func TestRepositories_LatestForOneStock(t *testing.T) {
	pool, ids := setupDB(t)
	ctx := context.Background()

	snap, err := NewFundamentalRepository(pool).LatestSnapshot(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 200.0, snap.MarketCap.Float64)

	stmt, err := NewFinancialRepository(pool).LatestStatement(ctx, ids[0], contracts.BalanceSheet)
	require.NoError(t, err)
	debt, ok := stmt.LineItem(contracts.LineTotalDebt)
	assert.True(t, ok)
	assert.Equal(t, 11.0, debt)

	_, err = NewFinancialRepository(pool).LatestStatement(ctx, ids[1], contracts.IncomeStatement)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	_, err = NewFundamentalRepository(pool).LatestSnapshot(ctx, -1)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestPriceRepository_Series(t *testing.T) {
	pool, ids := setupDB(t)
	ctx := context.Background()
	repo := NewPriceRepository(pool)

	series, err := repo.GetSeriesSince(ctx, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, series[ids[0]], 2)
	assert.True(t, series[ids[0]][0].Date.Before(series[ids[0]][1].Date))

	bars, err := repo.GetByStock(ctx, ids[0], 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 13.0, bars[0].Close)
}

func TestStockRepository_NotFound(t *testing.T) {
	pool, _ := setupDB(t)

	_, err := NewStockRepository(pool).GetStock(context.Background(), -1)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
