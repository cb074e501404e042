package contracts

import (
	"strings"

	"github.com/guregu/null/v6"
)

// MarketCapCategory buckets entities by latest market cap
type MarketCapCategory string

const (
	CategoryAll      MarketCapCategory = "all"
	CategoryLargeCap MarketCapCategory = "largecap"
	CategoryMidCap   MarketCapCategory = "midcap"
	CategorySmallCap MarketCapCategory = "smallcap"
	CategoryMicroCap MarketCapCategory = "microcap"
)

// Bucket bounds in the quote currency
const (
	LargeCapFloor = 200_000_000_000
	MidCapFloor   = 50_000_000_000
	SmallCapFloor = 10_000_000_000
)

// Categories lists every category, "all" first
func Categories() []MarketCapCategory {
	return []MarketCapCategory{CategoryAll, CategoryLargeCap, CategoryMidCap, CategorySmallCap, CategoryMicroCap}
}

// ParseCategory maps a query value to a category. Empty means all.
func ParseCategory(s string) (MarketCapCategory, error) {
	if s == "" {
		return CategoryAll, nil
	}
	for _, c := range Categories() {
		if MarketCapCategory(s) == c {
			return c, nil
		}
	}
	return "", NewValidationError("marketCapCategory", "unknown market cap category %q", s)
}

// Contains reports whether a market cap falls into the bucket.
// Every bucket except "all" requires a positive market cap.
func (c MarketCapCategory) Contains(marketCap null.Float) bool {
	if c == CategoryAll {
		return true
	}
	if !marketCap.Valid || marketCap.Float64 <= 0 {
		return false
	}

	mc := marketCap.Float64
	switch c {
	case CategoryLargeCap:
		return mc >= LargeCapFloor
	case CategoryMidCap:
		return mc >= MidCapFloor && mc < LargeCapFloor
	case CategorySmallCap:
		return mc >= SmallCapFloor && mc < MidCapFloor
	case CategoryMicroCap:
		return mc < SmallCapFloor
	}
	return false
}

// Direction is the ranking sort order
type Direction string

const (
	Descending Direction = "DESC" // top-N
	Ascending  Direction = "ASC"  // last-N
)

// ParseDirection accepts DESC/ASC and top/last in any case. Empty means DESC.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "top":
		return Descending, nil
	case "asc", "last":
		return Ascending, nil
	}
	return "", NewValidationError("orderDirection", "must be one of DESC, ASC, top, last")
}
