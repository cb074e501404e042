package screener

import (
	"fmt"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/indicator"
)

// Mode selects how moving-average criteria are interpreted
type Mode int

const (
	// ModeBasic fixes the MA predicate to close < MA
	ModeBasic Mode = iota
	// ModeGranular requires an explicit operator on every criterion
	ModeGranular
)

func (m Mode) String() string {
	if m == ModeGranular {
		return "granular"
	}
	return "basic"
}

// Operator compares a left value against a right value
type Operator string

const (
	GreaterThan Operator = "greater_than"
	LessThan    Operator = "less_than"
	EqualTo     Operator = "equal_to"
)

// ParseOperator rejects anything outside the three comparison operators
func ParseOperator(s string) (Operator, bool) {
	switch Operator(s) {
	case GreaterThan, LessThan, EqualTo:
		return Operator(s), true
	}
	return "", false
}

// Apply evaluates left <op> right. EqualTo is exact float equality.
func (o Operator) Apply(left, right float64) bool {
	switch o {
	case GreaterThan:
		return left > right
	case LessThan:
		return left < right
	case EqualTo:
		return left == right
	}
	return false
}

// Kind tags a criterion variant
type Kind string

const (
	KindMovingAverage Kind = "ma"
	KindRSI           Kind = "rsi"
	KindMomentum      Kind = "momentum"
)

// Criterion is one filter rule. An absent indicator always fails.
type Criterion interface {
	Kind() Kind
	Match(sig *indicator.Signals) bool
}

// MovingAverage compares the latest close against MA(Period)
type MovingAverage struct {
	Period   int
	Operator Operator
}

func (MovingAverage) Kind() Kind { return KindMovingAverage }

func (c MovingAverage) Match(sig *indicator.Signals) bool {
	ma, ok := sig.MovingAverage(c.Period)
	if !ok {
		return false
	}
	return c.Operator.Apply(sig.Close, ma)
}

// RSI compares the 14-day RSI against Threshold
type RSI struct {
	Operator  Operator
	Threshold float64
}

func (RSI) Kind() Kind { return KindRSI }

func (c RSI) Match(sig *indicator.Signals) bool {
	if sig.RSI == nil {
		return false
	}
	return c.Operator.Apply(*sig.RSI, c.Threshold)
}

// Momentum compares the single-day percent change against Threshold
type Momentum struct {
	Operator  Operator
	Threshold float64
}

func (Momentum) Kind() Kind { return KindMomentum }

func (c Momentum) Match(sig *indicator.Signals) bool {
	if sig.Momentum == nil {
		return false
	}
	return c.Operator.Apply(*sig.Momentum, c.Threshold)
}

// Evaluate is the logical AND of every criterion; an empty list passes
func Evaluate(sig *indicator.Signals, criteria []Criterion) bool {
	for _, c := range criteria {
		if !c.Match(sig) {
			return false
		}
	}
	return true
}

// Periods returns the MA periods referenced by criteria
func Periods(criteria []Criterion) []int {
	var out []int
	for _, c := range criteria {
		if ma, ok := c.(MovingAverage); ok {
			out = append(out, ma.Period)
		}
	}
	return out
}

// RawCriterion is the JSON shape of a criterion
type RawCriterion struct {
	Type     string   `json:"type"`
	Operator string   `json:"operator,omitempty"`
	Period   *int     `json:"period,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// ParseCriteria validates raw criteria for mode before any data is read.
// Basic mode fixes every predicate: close < MA, RSI < value, momentum > value.
// A supplied operator must still be valid there but is not applied.
func ParseCriteria(raw []RawCriterion, mode Mode, maxPeriod int) ([]Criterion, error) {
	out := make([]Criterion, 0, len(raw))

	for i, r := range raw {
		field := func(name string) string { return fmt.Sprintf("criteria[%d].%s", i, name) }

		switch Kind(r.Type) {
		case KindMovingAverage, KindRSI, KindMomentum:
		default:
			return nil, contracts.NewValidationError(field("type"), "unknown criterion type %q", r.Type)
		}

		var (
			op    Operator
			hasOp bool
		)
		if r.Operator != "" {
			if op, hasOp = ParseOperator(r.Operator); !hasOp {
				return nil, contracts.NewValidationError(field("operator"),
					"unknown operator %q (want greater_than, less_than or equal_to)", r.Operator)
			}
		} else if mode == ModeGranular {
			return nil, contracts.NewValidationError(field("operator"), "operator is required")
		}

		switch Kind(r.Type) {
		case KindMovingAverage:
			if r.Period == nil {
				return nil, contracts.NewValidationError(field("period"), "period is required")
			}
			if *r.Period <= 0 || *r.Period > maxPeriod {
				return nil, contracts.NewValidationError(field("period"), "period must be between 1 and %d", maxPeriod)
			}
			if mode == ModeBasic {
				op = LessThan
			}
			out = append(out, MovingAverage{Period: *r.Period, Operator: op})

		case KindRSI:
			if r.Value == nil {
				return nil, contracts.NewValidationError(field("value"), "value is required")
			}
			if mode == ModeBasic {
				op = LessThan
			}
			out = append(out, RSI{Operator: op, Threshold: *r.Value})

		case KindMomentum:
			if r.Value == nil {
				return nil, contracts.NewValidationError(field("value"), "value is required")
			}
			if mode == ModeBasic {
				op = GreaterThan
			}
			out = append(out, Momentum{Operator: op, Threshold: *r.Value})
		}
	}

	return out, nil
}
