// Package metric is the registry of rankable metrics.
//
// A metric is a Descriptor: a numerator operand over an entity's latest
// fundamentals snapshot, statement line item or price bar, optionally divided
// by a second operand. The ranking engine only ever talks to the registry, so
// new metrics need no engine change.
package metric

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/stockscope/internal/contracts"
)

// Catalog maps metric names to descriptors
// ⭐ SSOT: 랭킹 지표 정의는 여기서만
type Catalog struct {
	mu      sync.RWMutex
	metrics map[string]Descriptor
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{metrics: make(map[string]Descriptor)}
}

// Register adds a descriptor; names must be unique
func (c *Catalog) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.metrics[d.Name]; exists {
		return fmt.Errorf("metric %s already registered", d.Name)
	}
	c.metrics[d.Name] = d
	return nil
}

// MustRegister panics on an invalid built-in descriptor
func (c *Catalog) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := c.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup resolves a metric name
func (c *Catalog) Lookup(name string) (Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.metrics[name]
	if !ok {
		return Descriptor{}, contracts.NewValidationError("metric", "unknown metric %q", name)
	}
	return d, nil
}

// Names returns every metric name, sorted
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.metrics))
	for name := range c.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every descriptor, sorted by name
func (c *Catalog) Descriptors() []Descriptor {
	names := c.Names()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Descriptor, len(names))
	for i, name := range names {
		out[i] = c.metrics[name]
	}
	return out
}

// DefaultCatalog registers the built-in metrics
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	marketCap := Fundamental(FieldMarketCap)
	revenue := Line(contracts.IncomeStatement, contracts.LineTotalRevenue)
	grossProfit := Line(contracts.IncomeStatement, contracts.LineGrossProfit)
	eps := Line(contracts.IncomeStatement, contracts.LineBasicEPS)
	totalDebt := Line(contracts.BalanceSheet, contracts.LineTotalDebt)
	costOfRevenue := Line(contracts.IncomeStatement, contracts.LineCostOfRevenue)
	repayment := Line(contracts.CashFlow, contracts.LineRepaymentOfDebt)

	c.MustRegister(
		Descriptor{Name: "market_cap", Description: "Latest market capitalisation", Numerator: marketCap, ExcludeZero: true},
		Descriptor{Name: "trailing_pe", Description: "Trailing price/earnings", Numerator: Fundamental(FieldTrailingPE), ExcludeZero: true},
		Descriptor{Name: "price_to_book", Description: "Price/book", Numerator: Fundamental(FieldPriceToBook), ExcludeZero: true},

		Descriptor{Name: "revenue", Description: "Total revenue", Numerator: revenue, ExcludeZero: true},
		Descriptor{Name: "gross_profit", Description: "Gross profit", Numerator: grossProfit, ExcludeZero: true},
		Descriptor{Name: "eps", Description: "Basic EPS", Numerator: eps, ExcludeZero: true},
		Descriptor{Name: "debt", Description: "Total debt", Numerator: totalDebt, ExcludeZero: true},
		Descriptor{Name: "current_assets", Description: "Current assets", Numerator: Line(contracts.BalanceSheet, contracts.LineCurrentAssets), ExcludeZero: true},
		Descriptor{Name: "total_tax_payable", Description: "Total tax payable", Numerator: Line(contracts.BalanceSheet, contracts.LineTotalTaxPayable), ExcludeZero: true},
		Descriptor{Name: "total_assets", Description: "Total assets", Numerator: Line(contracts.BalanceSheet, contracts.LineTotalAssets), ExcludeZero: true},
		Descriptor{Name: "long_term_equity_investment", Description: "Long term equity investment", Numerator: Line(contracts.BalanceSheet, contracts.LineLongTermEquityInvestment), ExcludeZero: true},
		Descriptor{Name: "free_cash_flow", Description: "Free cash flow", Numerator: Line(contracts.CashFlow, contracts.LineFreeCashFlow), ExcludeZero: true},
		Descriptor{Name: "repayment_of_debt", Description: "Repayment of debt", Numerator: repayment, ExcludeZero: true},

		Descriptor{Name: "market_cap_revenue", Description: "Market cap / total revenue", Numerator: marketCap, Denominator: &revenue, ExcludeZero: true},
		Descriptor{Name: "market_cap_grossprofit", Description: "Market cap / gross profit", Numerator: marketCap, Denominator: &grossProfit, ExcludeZero: true},
		Descriptor{Name: "market_cap_debt", Description: "Market cap / total debt", Numerator: marketCap, Denominator: &totalDebt, ExcludeZero: true},
		Descriptor{Name: "last_close_price_eps", Description: "Last close / basic EPS", Numerator: LastClose(), Denominator: &eps, ExcludeZero: true},
		Descriptor{Name: "revenue_cost_revenue", Description: "Total revenue / cost of revenue", Numerator: revenue, Denominator: &costOfRevenue, ExcludeZero: true},
		Descriptor{Name: "total_debt_repayment_of_debt", Description: "Total debt / repayment of debt", Numerator: totalDebt, Denominator: &repayment, ExcludeZero: true},
	)

	return c
}
