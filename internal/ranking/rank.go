// Package ranking orders entities by a catalog metric.
package ranking

import (
	"sort"
	"time"

	"github.com/wonny/stockscope/internal/contracts"
)

// Entry is one entity's resolved metric. Present is false for null, missing
// or zero-divisor values.
type Entry struct {
	StockID int64
	Value   float64
	AsOf    time.Time
	Present bool
}

// Rank drops absent entries, sorts by value and truncates to limit.
// Equal values keep their input order; callers must not rely on it.
func Rank(entries []Entry, direction contracts.Direction, limit int) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Present {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if direction == contracts.Ascending {
			return out[i].Value < out[j].Value
		}
		return out[i].Value > out[j].Value
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
