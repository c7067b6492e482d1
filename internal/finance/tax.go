package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxBracket taxes income up to UpTo at Rate percent. The top bracket has no
// upper limit and leaves UpTo invalid.
type TaxBracket struct {
	UpTo decimal.NullDecimal
	Rate decimal.Decimal
}

// TaxTable is an ascending list of brackets ending with an unbounded one.
type TaxTable []TaxBracket

func bracket(upTo int64, rate int64) TaxBracket {
	return TaxBracket{
		UpTo: decimal.NewNullDecimal(decimal.NewFromInt(upTo)),
		Rate: decimal.NewFromInt(rate),
	}
}

// DefaultTaxTable holds the annual income brackets in ILS.
var DefaultTaxTable = TaxTable{
	bracket(75960, 10),
	bracket(108960, 14),
	bracket(174960, 20),
	bracket(243120, 31),
	bracket(505920, 35),
	bracket(651600, 47),
	{Rate: decimal.NewFromInt(50)},
}

// Validate checks that limits strictly increase, rates are within 0..100 and
// only the last bracket is unbounded.
func (t TaxTable) Validate() error {
	if len(t) == 0 {
		return errors.New("tax table is empty")
	}
	prev := decimal.Zero
	for i, b := range t {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("bracket %d: rate %s out of range", i+1, b.Rate)
		}
		last := i == len(t)-1
		if !b.UpTo.Valid {
			if !last {
				return fmt.Errorf("bracket %d: only the last bracket may be unbounded", i+1)
			}
			continue
		}
		if last {
			return errors.New("last bracket must be unbounded")
		}
		if !b.UpTo.Decimal.GreaterThan(prev) {
			return fmt.Errorf("bracket %d: limit %s must exceed %s", i+1, b.UpTo.Decimal, prev)
		}
		prev = b.UpTo.Decimal
	}
	return nil
}

// Tax applies each bracket's rate to the slice of income falling inside it.
// Non-positive income pays nothing.
func (t TaxTable) Tax(annualIncome float64) float64 {
	if !finite(annualIncome) {
		return 0
	}
	income := decimal.NewFromFloat(annualIncome)
	if !income.IsPositive() {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	tax := decimal.Zero
	lower := decimal.Zero
	for _, b := range t {
		upper := income
		if b.UpTo.Valid && b.UpTo.Decimal.LessThan(income) {
			upper = b.UpTo.Decimal
		}
		if upper.GreaterThan(lower) {
			tax = tax.Add(upper.Sub(lower).Mul(b.Rate).Div(hundred))
		}
		if !b.UpTo.Valid || !b.UpTo.Decimal.LessThan(income) {
			break
		}
		lower = b.UpTo.Decimal
	}
	return tax.InexactFloat64()
}

// IncomeTax computes tax on annual income with DefaultTaxTable.
func IncomeTax(annualIncome float64) float64 {
	return DefaultTaxTable.Tax(annualIncome)
}

// ParseTaxTable reads brackets written as "limit:rate" pairs separated by
// commas, the last one with an empty limit, e.g. "75960:10,108960:14,:50".
func ParseTaxTable(s string) (TaxTable, error) {
	var t TaxTable
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		limit, rate, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid tax bracket %q", part)
		}
		r, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil {
			return nil, fmt.Errorf("invalid tax rate in %q: %w", part, err)
		}
		b := TaxBracket{Rate: r}
		if limit = strings.TrimSpace(limit); limit != "" {
			l, err := decimal.NewFromString(limit)
			if err != nil {
				return nil, fmt.Errorf("invalid tax limit in %q: %w", part, err)
			}
			b.UpTo = decimal.NewNullDecimal(l)
		}
		t = append(t, b)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// TaxEstimate is the tax due on an income together with its effective rate.
type TaxEstimate struct {
	Income        float64 `json:"income"`
	Tax           float64 `json:"tax"`
	EffectiveRate float64 `json:"effectiveRate"`
	NetIncome     float64 `json:"netIncome"`
}

// Estimate computes the tax and the effective rate in percent.
func (t TaxTable) Estimate(annualIncome float64) TaxEstimate {
	tax := t.Tax(annualIncome)
	e := TaxEstimate{Income: annualIncome, Tax: tax, NetIncome: annualIncome - tax}
	if annualIncome > 0 {
		e.EffectiveRate = tax / annualIncome * 100
	}
	return e
}
