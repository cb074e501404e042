package indicator

import (
	"sort"
	"time"

	"github.com/wonny/stockscope/internal/contracts"
)

// DefaultPeriods are the moving averages reported with every screener row
var DefaultPeriods = []int{20, 50, 100, 200}

// Signals holds one stock's derived indicators. Absent values are missing map
// keys or nil pointers.
type Signals struct {
	StockID  int64
	Ticker   string
	Close    float64
	AsOf     time.Time
	MA       map[int]float64
	RSI      *float64
	Momentum *float64
}

// MovingAverage returns the MA for period, if present
func (s *Signals) MovingAverage(period int) (float64, bool) {
	v, ok := s.MA[period]
	return v, ok
}

// Compute trims the series to the trailing lookbackDays and derives every indicator.
// ok is false when no bar falls inside the window.
func Compute(stock contracts.Stock, series Series, asOf time.Time, lookbackDays int, periods []int) (*Signals, bool) {
	w := Window(series, asOf, lookbackDays)
	if len(w) == 0 {
		return nil, false
	}

	latest := w[len(w)-1]
	sig := &Signals{
		StockID: stock.ID,
		Ticker:  stock.Ticker,
		Close:   latest.Close,
		AsOf:    latest.Date,
		MA:      make(map[int]float64, len(periods)),
	}

	for _, p := range periods {
		if v, ok := MovingAverage(w, asOf, p); ok {
			sig.MA[p] = v
		}
	}

	if v, ok := RSI(w, asOf); ok {
		sig.RSI = &v
	}
	if v, ok := Momentum(w); ok {
		sig.Momentum = &v
	}

	return sig, true
}

// MergePeriods returns DefaultPeriods plus extra, sorted and de-duplicated
func MergePeriods(extra ...int) []int {
	seen := make(map[int]struct{}, len(DefaultPeriods)+len(extra))
	out := make([]int, 0, len(DefaultPeriods)+len(extra))
	for _, p := range append(append([]int{}, DefaultPeriods...), extra...) {
		if _, dup := seen[p]; dup || p <= 0 {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
