package contracts

import (
	"time"

	"github.com/guregu/null/v6"
)

// FinancialSummary is the aggregate view over a (possibly filtered) entity set.
// Ratios are null when their divisor is zero.
type FinancialSummary struct {
	Category       MarketCapCategory `json:"marketCapCategory"`
	StockCount     int               `json:"stockCount"`
	TotalMarketCap float64           `json:"totalMarketCap"`
	TotalProfit    float64           `json:"totalProfit"`
	TotalRevenue   float64           `json:"totalRevenue"`
	TotalDebt      float64           `json:"totalDebt"`
	CombinedEPS    float64           `json:"combinedEPS"`
	EPSCount       int               `json:"epsCount"`

	AvgProfitPerMcap    null.Float `json:"avgProfitPerMcap"`
	AvgProfitPerRevenue null.Float `json:"avgProfitPerRevenue"`
	AvgDebtPerMcap      null.Float `json:"avgDebtPerMcap"`
	AvgDebtPerRevenue   null.Float `json:"avgDebtPerRevenue"`

	ComputedAt time.Time `json:"computedAt"`
}

// StoredSummary is a persisted summary and the date it was crunched for
type StoredSummary struct {
	Date      time.Time        `json:"date"`
	Summary   FinancialSummary `json:"summary"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
