// Package aggregate computes market-wide financial totals over batched
// statement fetches and turns them into market-cap-relative summaries.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/logger"
)

// DefaultBatchSize bounds the statements held per fetch
const DefaultBatchSize = 50

// Totals are the running sums of one aggregation. Missing line items contribute 0.
type Totals struct {
	Profit   decimal.Decimal
	Revenue  decimal.Decimal
	Debt     decimal.Decimal
	EPS      decimal.Decimal
	EPSCount int

	Stocks  int
	Batches int
}

func newTotals() Totals {
	return Totals{
		Profit:  decimal.Zero,
		Revenue: decimal.Zero,
		Debt:    decimal.Zero,
		EPS:     decimal.Zero,
	}
}

// add folds a partial into t
func (t *Totals) add(p Totals) {
	t.Profit = t.Profit.Add(p.Profit)
	t.Revenue = t.Revenue.Add(p.Revenue)
	t.Debt = t.Debt.Add(p.Debt)
	t.EPS = t.EPS.Add(p.EPS)
	t.EPSCount += p.EPSCount
}

// reduce sums one batch of statements
func reduce(stmts []contracts.FinancialStatement) Totals {
	p := newTotals()
	for _, st := range stmts {
		switch st.Type {
		case contracts.IncomeStatement:
			if v, ok := st.LineItem(contracts.LineNetIncome); ok {
				p.Profit = p.Profit.Add(decimal.NewFromFloat(v))
			}
			if v, ok := st.LineItem(contracts.LineTotalRevenue); ok {
				p.Revenue = p.Revenue.Add(decimal.NewFromFloat(v))
			}
			if v, ok := st.LineItem(contracts.LineBasicEPS); ok {
				p.EPS = p.EPS.Add(decimal.NewFromFloat(v))
				p.EPSCount++
			}
		case contracts.BalanceSheet:
			if v, ok := st.LineItem(contracts.LineTotalDebt); ok {
				p.Debt = p.Debt.Add(decimal.NewFromFloat(v))
			}
		}
	}
	return p
}

// Aggregator sums statement line items across many stocks
// ⭐ SSOT: 배치 집계는 여기서만
type Aggregator struct {
	financials  contracts.FinancialRepository
	batchSize   int
	parallelism int
	timeout     time.Duration
	metrics     *metrics.Registry
	logger      *logger.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(financials contracts.FinancialRepository, cfg config.AggregateConfig, log *logger.Logger) *Aggregator {
	a := &Aggregator{
		financials:  financials,
		batchSize:   cfg.BatchSize,
		parallelism: cfg.Parallelism,
		timeout:     cfg.Timeout,
		logger:      log.WithComponent("aggregate"),
	}
	if a.batchSize <= 0 {
		a.batchSize = DefaultBatchSize
	}
	if a.parallelism <= 0 {
		a.parallelism = 1
	}
	return a
}

// WithMetrics attaches Prometheus instrumentation
func (a *Aggregator) WithMetrics(reg *metrics.Registry) *Aggregator {
	a.metrics = reg
	return a
}

// BatchSize is the configured batch size
func (a *Aggregator) BatchSize() int {
	return a.batchSize
}

// Aggregate sums the statements of ids in fixed-size batches. Batches may be
// fetched in parallel but are always folded in batch order. Any batch failure
// fails the whole run; no partial totals are returned.
func (a *Aggregator) Aggregate(ctx context.Context, ids []int64, batchSize int) (*Totals, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	start := time.Now()

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	batches := split(ids, batchSize)
	partials := make([]Totals, len(batches))

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(a.parallelism)

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stmts, err := a.financials.GetByStocks(gctx, batch)
			if err != nil {
				return fmt.Errorf("failed to fetch batch %d/%d: %w", i+1, len(batches), err)
			}
			partials[i] = reduce(stmts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		status := "error"
		switch {
		case ctx.Err() != nil:
			status = "canceled"
			err = fmt.Errorf("aggregation canceled: %w", ctx.Err())
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			status = "timeout"
			err = fmt.Errorf("aggregation exceeded %s: %w", a.timeout, contracts.ErrTimeout)
		}

		a.metrics.RecordAggregation(status, len(batches), time.Since(start).Seconds())
		a.logger.WithFields(map[string]interface{}{
			"stocks":  len(ids),
			"batches": len(batches),
			"status":  status,
		}).WithError(err).Error("Aggregation failed")
		return nil, err
	}

	totals := newTotals()
	for _, p := range partials {
		totals.add(p)
	}
	totals.Stocks = len(ids)
	totals.Batches = len(batches)

	elapsed := time.Since(start)
	a.metrics.RecordAggregation("ok", len(batches), elapsed.Seconds())
	a.logger.WithFields(map[string]interface{}{
		"stocks":      len(ids),
		"batches":     len(batches),
		"batch_size":  batchSize,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Aggregation completed")

	return &totals, nil
}

func split(ids []int64, size int) [][]int64 {
	batches := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
