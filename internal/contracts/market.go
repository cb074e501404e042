package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/guregu/null/v6"
)

// Stock is a tradable entity
type Stock struct {
	ID     int64  `json:"id"`
	Ticker string `json:"ticker"`
}

// PriceBar is one daily OHLCV record
// ⭐ SSOT: 일별 시세 레코드
type PriceBar struct {
	StockID     int64     `json:"stock_id"`
	Date        time.Time `json:"date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	Dividends   float64   `json:"dividends"`
	StockSplits float64   `json:"stock_splits"`
}

// FundamentalSnapshot is a dated valuation record. Any field may be null.
type FundamentalSnapshot struct {
	StockID     int64      `json:"stock_id"`
	Date        time.Time  `json:"date"`
	MarketCap   null.Float `json:"market_cap"`
	TrailingPE  null.Float `json:"trailing_pe"`
	PriceToBook null.Float `json:"price_to_book"`
}

// HasMarketCap reports whether the snapshot carries a usable (positive) market cap
func (f FundamentalSnapshot) HasMarketCap() bool {
	return f.MarketCap.Valid && f.MarketCap.Float64 > 0
}

// StatementType is the closed set of financial statement kinds
type StatementType string

const (
	IncomeStatement StatementType = "income_statement"
	BalanceSheet    StatementType = "balance_sheet"
	CashFlow        StatementType = "cash_flow"
)

// ParseStatementType rejects anything outside the closed set
func ParseStatementType(s string) (StatementType, error) {
	switch StatementType(s) {
	case IncomeStatement, BalanceSheet, CashFlow:
		return StatementType(s), nil
	}
	return "", NewValidationError("statement_type", "unknown statement type %q", s)
}

// Well-known line items
const (
	LineNetIncome                = "Net Income"
	LineTotalRevenue             = "Total Revenue"
	LineGrossProfit              = "Gross Profit"
	LineBasicEPS                 = "Basic EPS"
	LineCostOfRevenue            = "Cost Of Revenue"
	LineTotalDebt                = "Total Debt"
	LineCurrentAssets            = "Current Assets"
	LineTotalTaxPayable          = "Total Tax Payable"
	LineTotalAssets              = "Total Assets"
	LineLongTermEquityInvestment = "Long Term Equity Investment"
	LineFreeCashFlow             = "Free Cash Flow"
	LineRepaymentOfDebt          = "Repayment Of Debt"
)

// FinancialStatement is one dated statement with an open set of line items
type FinancialStatement struct {
	StockID int64              `json:"stock_id"`
	Type    StatementType      `json:"statement_type"`
	Date    time.Time          `json:"date"`
	Items   map[string]float64 `json:"data"`
}

// LineItem returns the named value; ok is false when the item is absent
func (s FinancialStatement) LineItem(name string) (float64, bool) {
	v, ok := s.Items[name]
	return v, ok
}

// ParseLineItems decodes a stored statement document. Nulls, non-numeric values
// and non-finite numbers are dropped so they read as absent.
func ParseLineItems(raw []byte) (map[string]float64, error) {
	items := make(map[string]float64)
	if len(raw) == 0 {
		return items, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode statement data: %w", err)
	}

	for name, v := range doc {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		items[name] = f
	}
	return items, nil
}

// AdvanceDecline counts up and down closes on one trading date
type AdvanceDecline struct {
	Date     time.Time `json:"date"`
	Advances int       `json:"advances"`
	Declines int       `json:"declines"`
}
