package aggregate

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/wonny/stockscope/internal/contracts"
)

var thousand = decimal.NewFromInt(1000)

// Summarize combines totals with the latest snapshots of the same stocks.
// Only positive market caps count toward the total.
func Summarize(
	category contracts.MarketCapCategory,
	totals *Totals,
	snapshots map[int64]contracts.FundamentalSnapshot,
	now time.Time,
) *contracts.FinancialSummary {
	marketCap := decimal.Zero
	for _, snap := range snapshots {
		if snap.HasMarketCap() {
			marketCap = marketCap.Add(decimal.NewFromFloat(snap.MarketCap.Float64))
		}
	}

	return &contracts.FinancialSummary{
		Category:       category,
		StockCount:     totals.Stocks,
		TotalMarketCap: marketCap.InexactFloat64(),
		TotalProfit:    totals.Profit.InexactFloat64(),
		TotalRevenue:   totals.Revenue.InexactFloat64(),
		TotalDebt:      totals.Debt.InexactFloat64(),
		CombinedEPS:    totals.EPS.InexactFloat64(),
		EPSCount:       totals.EPSCount,

		AvgProfitPerMcap:    perThousand(totals.Profit, marketCap),
		AvgProfitPerRevenue: perThousand(totals.Profit, totals.Revenue),
		AvgDebtPerMcap:      perThousand(totals.Debt, marketCap),
		AvgDebtPerRevenue:   perThousand(totals.Debt, totals.Revenue),

		ComputedAt: now,
	}
}

// perThousand is total / (divisor/1000); null when the divisor is zero
func perThousand(total, divisor decimal.Decimal) null.Float {
	if divisor.IsZero() {
		return null.Float{}
	}
	return null.FloatFrom(total.Div(divisor.Div(thousand)).InexactFloat64())
}
