// Package indicator derives per-stock technical signals from a daily price series.
//
// Every function takes a date-ascending series and an as-of date. Windows are
// calendar days, not trading days: gaps (weekends, halts) are never back-filled.
package indicator

import (
	"time"

	"github.com/wonny/stockscope/internal/contracts"
)

const (
	// LookbackDays bounds the series any indicator may consult
	LookbackDays = 200

	// RSIWindowDays is the fixed RSI window
	RSIWindowDays = 14

	// RSI sentinels when the average loss is zero
	RSIAllGains = 100.0
	RSIFlat     = 50.0
)

// Series is a date-ascending price history of one stock
type Series []contracts.PriceBar

// day truncates t to midnight UTC so calendar arithmetic ignores time of day
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowStart is the first calendar day Window keeps for asOf and days.
// Data sources must fetch from here so the oldest day is not cut by the time of day.
func WindowStart(asOf time.Time, days int) time.Time {
	return day(asOf).AddDate(0, 0, -days)
}

// Window returns the bars dated within the trailing days before asOf (inclusive).
// The result shares the backing array of s.
func Window(s Series, asOf time.Time, days int) Series {
	from := WindowStart(asOf, days)
	to := day(asOf)

	start := len(s)
	for i, b := range s {
		if !day(b.Date).Before(from) {
			start = i
			break
		}
	}

	end := start
	for end < len(s) && !day(s[end].Date).After(to) {
		end++
	}
	return s[start:end]
}

// MovingAverage is the mean close over the trailing period calendar days.
// ok is false when the series holds fewer than period bars or the window is empty.
func MovingAverage(s Series, asOf time.Time, period int) (float64, bool) {
	if period <= 0 || len(s) < period {
		return 0, false
	}

	w := Window(s, asOf, period)
	if len(w) == 0 {
		return 0, false
	}

	var sum float64
	for _, b := range w {
		sum += b.Close
	}
	return sum / float64(len(w)), true
}

// RSI is the 14-day relative strength index over consecutive bar pairs.
// An all-gain window yields RSIAllGains and a flat window yields RSIFlat.
// ok is false with fewer than two bars in the window.
func RSI(s Series, asOf time.Time) (float64, bool) {
	w := Window(s, asOf, RSIWindowDays)
	if len(w) < 2 {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i < len(w); i++ {
		change := w[i].Close - w[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	pairs := float64(len(w) - 1)
	avgGain := gains / pairs
	avgLoss := losses / pairs

	if avgLoss == 0 {
		if avgGain == 0 {
			return RSIFlat, true
		}
		return RSIAllGains, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// Momentum is the percent change between the two most recent bars
func Momentum(s Series) (float64, bool) {
	if len(s) < 2 {
		return 0, false
	}

	prev := s[len(s)-2].Close
	if prev == 0 {
		return 0, false
	}

	latest := s[len(s)-1].Close
	return (latest - prev) / prev * 100, true
}
