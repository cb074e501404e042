package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/internal/contracts"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// daily builds one bar per calendar day starting at start
func daily(start time.Time, closes ...float64) Series {
	s := make(Series, len(closes))
	for i, c := range closes {
		s[i] = contracts.PriceBar{StockID: 1, Date: start.AddDate(0, 0, i), Close: c}
	}
	return s
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestWindow(t *testing.T) {
	s := daily(jan1, ramp(30)...)
	asOf := jan1.AddDate(0, 0, 29) // Jan 30

	w := Window(s, asOf, 5)
	require.Len(t, w, 6, "both ends inclusive")
	assert.Equal(t, 25.0, w[0].Close)
	assert.Equal(t, 30.0, w[len(w)-1].Close)

	assert.Empty(t, Window(s, asOf.AddDate(0, 2, 0), 5))

	// bars after asOf are not consulted
	w = Window(s, jan1.AddDate(0, 0, 9), 3)
	assert.Equal(t, 10.0, w[len(w)-1].Close)
}

func TestWindowStart_IgnoresTimeOfDay(t *testing.T) {
	afternoon := time.Date(2024, 7, 20, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), WindowStart(afternoon, 10))

	s := daily(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), ramp(10)...)
	assert.Equal(t, 1.0, Window(s, afternoon, 10)[0].Close, "first day of the window is kept")
}

func TestMovingAverage(t *testing.T) {
	s := daily(jan1, ramp(30)...)
	asOf := jan1.AddDate(0, 0, 29)

	ma, ok := MovingAverage(s, asOf, 20)
	require.True(t, ok)
	assert.InDelta(t, 20.0, ma, 1e-9) // mean of 10..30

	_, ok = MovingAverage(s[:5], asOf, 20)
	assert.False(t, ok, "fewer bars than period")

	_, ok = MovingAverage(s, asOf.AddDate(0, 3, 0), 20)
	assert.False(t, ok, "no bars inside the window")

	_, ok = MovingAverage(s, asOf, 0)
	assert.False(t, ok)
}

func TestMovingAverage_GapsNotBackfilled(t *testing.T) {
	s := Series{
		{Date: jan1, Close: 10},
		{Date: jan1.AddDate(0, 0, 1), Close: 20},
		{Date: jan1.AddDate(0, 0, 9), Close: 30},
	}

	ma, ok := MovingAverage(s, jan1.AddDate(0, 0, 9), 3)
	require.True(t, ok)
	assert.Equal(t, 30.0, ma, "only the bar inside the 3 calendar days counts")
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
		ok     bool
	}{
		{"all gains", ramp(15), RSIAllGains, true},
		{"flat", []float64{5, 5, 5, 5}, RSIFlat, true},
		{"mixed", []float64{10, 12, 11}, 100 - 100/(1+2.0), true},
		{"all losses", []float64{10, 9, 8}, 0, true},
		{"single bar", []float64{10}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := daily(jan1, tt.closes...)
			got, ok := RSI(s, s[len(s)-1].Date)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestRSI_OnlyFourteenDays(t *testing.T) {
	// a crash 20 days ago must not weigh on the 14-day window
	closes := append([]float64{100, 1}, ramp(25)...)
	s := daily(jan1, closes...)

	got, ok := RSI(s, s[len(s)-1].Date)
	require.True(t, ok)
	assert.Equal(t, RSIAllGains, got)
}

func TestMomentum(t *testing.T) {
	m, ok := Momentum(daily(jan1, 50, 100, 110))
	require.True(t, ok)
	assert.InDelta(t, 10.0, m, 1e-9)

	_, ok = Momentum(daily(jan1, 0, 10))
	assert.False(t, ok, "zero previous close")

	_, ok = Momentum(daily(jan1, 10))
	assert.False(t, ok)
}

func TestCompute(t *testing.T) {
	stock := contracts.Stock{ID: 7, Ticker: "ACME"}
	// one stale bar outside the lookback plus 30 fresh ones
	s := append(Series{{Date: jan1.AddDate(0, 0, -300), Close: 1000}}, daily(jan1, ramp(30)...)...)
	asOf := jan1.AddDate(0, 0, 29)

	sig, ok := Compute(stock, s, asOf, LookbackDays, MergePeriods(10))
	require.True(t, ok)

	assert.Equal(t, int64(7), sig.StockID)
	assert.Equal(t, "ACME", sig.Ticker)
	assert.Equal(t, 30.0, sig.Close)
	assert.Equal(t, asOf, sig.AsOf)

	ma20, ok := sig.MovingAverage(20)
	require.True(t, ok)
	assert.InDelta(t, 20.0, ma20, 1e-9, "stale bar ignored")

	_, ok = sig.MovingAverage(50)
	assert.False(t, ok, "only 30 bars in the lookback")

	_, ok = sig.MovingAverage(10)
	assert.True(t, ok)

	require.NotNil(t, sig.RSI)
	require.NotNil(t, sig.Momentum)

	_, ok = Compute(stock, s[:1], asOf, LookbackDays, DefaultPeriods)
	assert.False(t, ok)
}

func TestMergePeriods(t *testing.T) {
	assert.Equal(t, []int{5, 20, 50, 100, 200}, MergePeriods(5, 20, -1))
	assert.Equal(t, DefaultPeriods, MergePeriods())
}
