package finance

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	ILS Currency = "ILS"
	USD Currency = "USD"
)

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case ILS, USD:
		return c, nil
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Fraction is the number of decimals shown for the currency.
func (c Currency) Fraction() int {
	if c == ILS {
		return 0
	}
	return 2
}

type pair struct{ from, to Currency }

// Converter converts amounts with fixed rates. Each direction has its own
// rate; the reverse of a pair is never derived from it.
type Converter struct {
	mu    sync.RWMutex
	rates map[pair]decimal.Decimal
}

// NewConverter returns a converter loaded with the ILS/USD rates.
func NewConverter() *Converter {
	c := &Converter{rates: make(map[pair]decimal.Decimal)}
	c.SetRate(ILS, USD, decimal.RequireFromString("0.27"))
	c.SetRate(USD, ILS, decimal.RequireFromString("3.7"))
	return c
}

// SetRate sets the multiplier applied when converting from -> to.
func (c *Converter) SetRate(from, to Currency, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[pair{from, to}] = rate
}

// Rate returns the multiplier for from -> to, and whether one is known.
func (c *Converter) Rate(from, to Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[pair{from, to}]
	return r, ok
}

// Convert returns amount expressed in to. Unknown pairs return the amount
// unchanged.
func (c *Converter) Convert(amount float64, from, to Currency) float64 {
	r, ok := c.Rate(from, to)
	if !ok || from == to || !finite(amount) {
		return amount
	}
	return decimal.NewFromFloat(amount).Mul(r).InexactFloat64()
}

// finite reports whether x can be represented as a decimal.
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

var defaultConverter = NewConverter()

// Convert uses the default ILS/USD rates.
func Convert(amount float64, from, to Currency) float64 {
	return defaultConverter.Convert(amount, from, to)
}

type numberStyle struct {
	decimal, thousand string
	suffix            bool
}

// Separators and symbol placement per base language. Anything not listed
// follows English.
var numberStyles = map[string]numberStyle{
	"he": {decimal: ".", thousand: ",", suffix: true},
	"de": {decimal: ",", thousand: ".", suffix: true},
	"es": {decimal: ",", thousand: ".", suffix: true},
	"it": {decimal: ",", thousand: ".", suffix: true},
	"nl": {decimal: ",", thousand: ".", suffix: false},
	"fr": {decimal: ",", thousand: " ", suffix: true},
	"ru": {decimal: ",", thousand: " ", suffix: true},
}

var englishStyle = numberStyle{decimal: ".", thousand: ","}

func styleFor(locale string) numberStyle {
	tag, err := language.Parse(locale)
	if err != nil {
		return englishStyle
	}
	base, _ := tag.Base()
	if s, ok := numberStyles[base.String()]; ok {
		return s
	}
	return englishStyle
}

// Format renders amount with the currency symbol, using the digit grouping of
// locale (a BCP 47 tag such as "he-IL" or "en-US"). ILS is shown without
// decimals, USD with two.
func Format(amount float64, cur Currency, locale string) string {
	style := styleFor(locale)
	grapheme := string(cur)
	if c := money.GetCurrency(string(cur)); c != nil {
		grapheme = c.Grapheme
	}
	template := "$1"
	if style.suffix {
		template = "1 $"
	}
	fraction := cur.Fraction()
	f := money.NewFormatter(fraction, style.decimal, style.thousand, grapheme, template)
	if !finite(amount) {
		return f.Format(0)
	}
	return f.Format(decimal.NewFromFloat(amount).Shift(int32(fraction)).Round(0).IntPart())
}
