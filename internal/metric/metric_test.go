package metric

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/internal/contracts"
)

var day = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func entity(mcap null.Float, income, balance, cash map[string]float64, lastClose *float64) EntityData {
	e := EntityData{
		Snapshot:   &contracts.FundamentalSnapshot{Date: day, MarketCap: mcap},
		Statements: map[contracts.StatementType]*contracts.FinancialStatement{},
	}
	add := func(t contracts.StatementType, items map[string]float64) {
		if items != nil {
			e.Statements[t] = &contracts.FinancialStatement{Type: t, Date: day.AddDate(0, -3, 0), Items: items}
		}
	}
	add(contracts.IncomeStatement, income)
	add(contracts.BalanceSheet, balance)
	add(contracts.CashFlow, cash)
	if lastClose != nil {
		e.LastBar = &contracts.PriceBar{Date: day, Close: *lastClose}
	}
	return e
}

func TestDefaultCatalog_Names(t *testing.T) {
	names := DefaultCatalog().Names()

	for _, want := range []string{
		"market_cap", "eps", "trailing_pe", "price_to_book", "gross_profit", "debt", "revenue",
		"free_cash_flow", "market_cap_revenue", "market_cap_grossprofit", "market_cap_debt",
		"current_assets", "total_tax_payable", "total_assets", "long_term_equity_investment",
		"last_close_price_eps", "revenue_cost_revenue", "repayment_of_debt", "total_debt_repayment_of_debt",
	} {
		assert.Contains(t, names, want)
	}
	assert.IsIncreasing(t, names)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := DefaultCatalog().Lookup("ebitda")

	var ve *contracts.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "metric", ve.Field)
}

func TestResolve(t *testing.T) {
	c := DefaultCatalog()
	lastClose := 50.0

	full := entity(null.FloatFrom(1000),
		map[string]float64{contracts.LineTotalRevenue: 200, contracts.LineBasicEPS: 5, contracts.LineCostOfRevenue: 80, contracts.LineGrossProfit: 0},
		map[string]float64{contracts.LineTotalDebt: 400},
		map[string]float64{contracts.LineRepaymentOfDebt: -100},
		&lastClose,
	)

	tests := []struct {
		metric string
		entity EntityData
		want   float64
		ok     bool
	}{
		{"market_cap", full, 1000, true},
		{"market_cap", entity(null.Float{}, nil, nil, nil, nil), 0, false},
		{"market_cap", entity(null.FloatFrom(-5), nil, nil, nil, nil), 0, false},
		{"revenue", full, 200, true},
		{"debt", entity(null.FloatFrom(1), nil, map[string]float64{"Total Assets": 1}, nil, nil), 0, false},
		{"gross_profit", full, 0, false},
		{"market_cap_revenue", full, 5, true},
		{"market_cap_debt", full, 2.5, true},
		{"market_cap_grossprofit", full, 0, false},
		{"market_cap_revenue", entity(null.Float{}, map[string]float64{contracts.LineTotalRevenue: 1}, nil, nil, nil), 0, false},
		{"last_close_price_eps", full, 10, true},
		{"last_close_price_eps", entity(null.FloatFrom(1), map[string]float64{contracts.LineBasicEPS: 5}, nil, nil, nil), 0, false},
		{"revenue_cost_revenue", full, 2.5, true},
		{"total_debt_repayment_of_debt", full, -4, true},
		{"trailing_pe", full, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			d, err := c.Lookup(tt.metric)
			require.NoError(t, err)

			got, ok := d.Resolve(tt.entity)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got.Value, 1e-9)
				assert.False(t, got.AsOf.IsZero())
			}
		})
	}
}

func TestResolve_AsOfFromRecord(t *testing.T) {
	d, _ := DefaultCatalog().Lookup("revenue")
	e := entity(null.FloatFrom(1), map[string]float64{contracts.LineTotalRevenue: 1}, nil, nil, nil)

	v, ok := d.Resolve(e)
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, -3, 0), v.AsOf)
}

func TestRequirements(t *testing.T) {
	c := DefaultCatalog()

	d, _ := c.Lookup("total_debt_repayment_of_debt")
	req := d.Requirements()
	assert.False(t, req.Snapshot)
	assert.Equal(t, []contracts.StatementType{contracts.BalanceSheet, contracts.CashFlow}, req.Statements)

	d, _ = c.Lookup("last_close_price_eps")
	req = d.Requirements()
	assert.True(t, req.LastBar)
	assert.Equal(t, []contracts.StatementType{contracts.IncomeStatement}, req.Statements)

	d, _ = c.Lookup("market_cap")
	assert.True(t, d.Requirements().Snapshot)
}

func TestRegister_Validation(t *testing.T) {
	c := NewCatalog()

	assert.Error(t, c.Register(Descriptor{}))
	assert.Error(t, c.Register(Descriptor{Name: "x", Numerator: Operand{Source: "crystal_ball"}}))
	assert.Error(t, c.Register(Descriptor{Name: "x", Numerator: Line("income", "Net Income")}))
	assert.Error(t, c.Register(Descriptor{Name: "x", Numerator: Line(contracts.IncomeStatement, "")}))
	assert.Error(t, c.Register(Descriptor{Name: "x", Numerator: Fundamental("beta")}))

	require.NoError(t, c.Register(Descriptor{Name: "x", Numerator: Fundamental(FieldMarketCap)}))
	assert.Error(t, c.Register(Descriptor{Name: "x", Numerator: Fundamental(FieldMarketCap)}), "duplicate")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
metrics:
  - name: net_income
    description: Net income
    numerator:
      source: statement
      statement: income_statement
      line_item: Net Income
    exclude_zero: true
  - name: net_margin
    numerator:
      source: statement
      statement: income_statement
      line_item: Net Income
    denominator:
      source: statement
      statement: income_statement
      line_item: Total Revenue
`), 0o600))

	c := DefaultCatalog()
	n, err := c.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, err := c.Lookup("net_margin")
	require.NoError(t, err)
	v, ok := d.Resolve(entity(null.Float{}, map[string]float64{"Net Income": 10, "Total Revenue": 40}, nil, nil, nil))
	require.True(t, ok)
	assert.InDelta(t, 0.25, v.Value, 1e-9)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
metrics:
  - name: typo
    numerator:
      source: fundamentals
      feild: market_cap
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
metrics:
  - name: bad_statement
    numerator:
      source: statement
      statement: income
      line_item: Net Income
`))
	assert.True(t, contracts.IsValidationError(err))

	got, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := NewCatalog().LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
