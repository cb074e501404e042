package metric

import (
	"math"
	"time"

	"github.com/wonny/stockscope/internal/contracts"
)

// Source names the dimension an operand reads from
type Source string

const (
	SourceFundamentals Source = "fundamentals"
	SourceStatement    Source = "statement"
	SourcePrice        Source = "price"
)

// Fundamentals fields
const (
	FieldMarketCap   = "market_cap"
	FieldTrailingPE  = "trailing_pe"
	FieldPriceToBook = "price_to_book"
	FieldClose       = "close"
)

// Operand points at one value of an entity's latest record
type Operand struct {
	Source    Source                  `yaml:"source" json:"source"`
	Field     string                  `yaml:"field,omitempty" json:"field,omitempty"`
	Statement contracts.StatementType `yaml:"statement,omitempty" json:"statement,omitempty"`
	LineItem  string                  `yaml:"line_item,omitempty" json:"line_item,omitempty"`
}

// Fundamental is an operand over the latest fundamentals snapshot
func Fundamental(field string) Operand {
	return Operand{Source: SourceFundamentals, Field: field}
}

// Line is an operand over a line item of the latest statement of a type
func Line(statement contracts.StatementType, item string) Operand {
	return Operand{Source: SourceStatement, Statement: statement, LineItem: item}
}

// LastClose is an operand over the latest price bar
func LastClose() Operand {
	return Operand{Source: SourcePrice, Field: FieldClose}
}

func (o Operand) validate(field string) error {
	switch o.Source {
	case SourceFundamentals:
		switch o.Field {
		case FieldMarketCap, FieldTrailingPE, FieldPriceToBook:
			return nil
		}
		return contracts.NewValidationError(field+".field", "unknown fundamentals field %q", o.Field)
	case SourceStatement:
		if _, err := contracts.ParseStatementType(string(o.Statement)); err != nil {
			return contracts.NewValidationError(field+".statement", "unknown statement type %q", o.Statement)
		}
		if o.LineItem == "" {
			return contracts.NewValidationError(field+".line_item", "line item is required")
		}
		return nil
	case SourcePrice:
		if o.Field != FieldClose {
			return contracts.NewValidationError(field+".field", "price operands support only %q", FieldClose)
		}
		return nil
	}
	return contracts.NewValidationError(field+".source", "unknown source %q", o.Source)
}

// EntityData is the latest record per dimension for one entity. Nil means no record.
type EntityData struct {
	Snapshot   *contracts.FundamentalSnapshot
	Statements map[contracts.StatementType]*contracts.FinancialStatement
	LastBar    *contracts.PriceBar
}

// resolve reads the operand; a non-positive market cap reads as absent
func (o Operand) resolve(e EntityData) (float64, time.Time, bool) {
	switch o.Source {
	case SourceFundamentals:
		if e.Snapshot == nil {
			return 0, time.Time{}, false
		}
		switch o.Field {
		case FieldMarketCap:
			if !e.Snapshot.HasMarketCap() {
				return 0, time.Time{}, false
			}
			return e.Snapshot.MarketCap.Float64, e.Snapshot.Date, true
		case FieldTrailingPE:
			return e.Snapshot.TrailingPE.Float64, e.Snapshot.Date, e.Snapshot.TrailingPE.Valid
		case FieldPriceToBook:
			return e.Snapshot.PriceToBook.Float64, e.Snapshot.Date, e.Snapshot.PriceToBook.Valid
		}
	case SourceStatement:
		st := e.Statements[o.Statement]
		if st == nil {
			return 0, time.Time{}, false
		}
		v, ok := st.LineItem(o.LineItem)
		return v, st.Date, ok
	case SourcePrice:
		if e.LastBar == nil {
			return 0, time.Time{}, false
		}
		return e.LastBar.Close, e.LastBar.Date, true
	}
	return 0, time.Time{}, false
}

// Descriptor defines a rankable metric: Numerator, optionally divided by Denominator
type Descriptor struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Numerator   Operand  `yaml:"numerator" json:"numerator"`
	Denominator *Operand `yaml:"denominator,omitempty" json:"denominator,omitempty"`
	// ExcludeZero treats a zero numerator as absent
	ExcludeZero bool `yaml:"exclude_zero,omitempty" json:"exclude_zero,omitempty"`
}

// Value is a resolved metric and the date of the record it came from
type Value struct {
	Value float64
	AsOf  time.Time
}

// Resolve computes the metric. ok is false for null or missing operands, a zero
// numerator under ExcludeZero, a zero divisor, or a non-finite result.
func (d Descriptor) Resolve(e EntityData) (Value, bool) {
	num, asOf, ok := d.Numerator.resolve(e)
	if !ok || (d.ExcludeZero && num == 0) {
		return Value{}, false
	}

	v := num
	if d.Denominator != nil {
		den, _, ok := d.Denominator.resolve(e)
		if !ok || den == 0 {
			return Value{}, false
		}
		v = num / den
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}, false
	}
	return Value{Value: v, AsOf: asOf}, true
}

// Requirements lists which latest dimensions a metric reads
type Requirements struct {
	Snapshot   bool
	Statements []contracts.StatementType
	LastBar    bool
}

// Requirements reports the dimensions Resolve will consult
func (d Descriptor) Requirements() Requirements {
	var req Requirements
	seen := map[contracts.StatementType]bool{}

	ops := []Operand{d.Numerator}
	if d.Denominator != nil {
		ops = append(ops, *d.Denominator)
	}
	for _, o := range ops {
		switch o.Source {
		case SourceFundamentals:
			req.Snapshot = true
		case SourceStatement:
			if !seen[o.Statement] {
				seen[o.Statement] = true
				req.Statements = append(req.Statements, o.Statement)
			}
		case SourcePrice:
			req.LastBar = true
		}
	}
	return req
}

// Validate checks a descriptor before registration
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return contracts.NewValidationError("name", "metric name is required")
	}
	if err := d.Numerator.validate(d.Name + ".numerator"); err != nil {
		return err
	}
	if d.Denominator != nil {
		if err := d.Denominator.validate(d.Name + ".denominator"); err != nil {
			return err
		}
	}
	return nil
}
