package ranking

import (
	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/metric"
)

// Request describes one ranking
type Request struct {
	Metric    string
	Direction contracts.Direction
	Limit     int
	Category  contracts.MarketCapCategory

	// StockIDs restricts the universe. nil means every stock; a non-nil empty
	// slice means no stock qualifies.
	StockIDs []int64

	// WithDetails joins last close and the latest valuation and statement
	// figures onto every row
	WithDetails bool
	// RequireMarketCap drops entities without a positive latest market cap
	RequireMarketCap bool
}

// Validate rejects bad input before any data access and resolves the metric
func (r Request) Validate(catalog *metric.Catalog) (metric.Descriptor, error) {
	d, err := catalog.Lookup(r.Metric)
	if err != nil {
		return metric.Descriptor{}, err
	}
	if r.Limit <= 0 {
		return metric.Descriptor{}, contracts.NewValidationError("limit", "must be a positive integer, got %d", r.Limit)
	}
	if r.Direction != contracts.Descending && r.Direction != contracts.Ascending {
		return metric.Descriptor{}, contracts.NewValidationError("orderDirection", "unknown order direction %q", r.Direction)
	}
	if r.Category != "" {
		if _, err := contracts.ParseCategory(string(r.Category)); err != nil {
			return metric.Descriptor{}, err
		}
	}
	return d, nil
}
