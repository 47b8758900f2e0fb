// Package format renders amounts and dates for terminal output using the
// configured locale.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DateLayout is the date format used in command output.
const DateLayout = "2006-01-02"

// Formatter renders decimal amounts with locale grouping.
type Formatter struct {
	p       *message.Printer
	symbol  string
	places  int32
	decimal string
}

// New returns a Formatter for a BCP 47 language tag.
func New(lang, symbol string, places int32) (*Formatter, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", lang, err)
	}
	if places < 0 {
		return nil, fmt.Errorf("decimal places must not be negative, got %d", places)
	}
	p := message.NewPrinter(tag)

	// The decimal separator is whatever sits between 0 and 5 in "0.5".
	half := p.Sprint(number.Decimal(0.5, number.Scale(1)))
	sep := strings.TrimSuffix(strings.TrimPrefix(half, "0"), "5")
	if sep == "" {
		sep = "."
	}

	return &Formatter{p: p, symbol: symbol, places: places, decimal: sep}, nil
}

// Number renders d rounded half-up to the configured places, with grouping.
func (f *Formatter) Number(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(f.places)
	intPart, frac, _ := strings.Cut(fixed, ".")

	grouped := intPart
	if n, err := strconv.ParseInt(intPart, 10, 64); err == nil {
		grouped = f.p.Sprint(number.Decimal(n))
	}

	var b strings.Builder
	if neg && !d.Round(f.places).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(grouped)
	if frac != "" {
		b.WriteString(f.decimal)
		b.WriteString(frac)
	}
	return b.String()
}

// Amount renders d with the currency symbol.
func (f *Formatter) Amount(d decimal.Decimal) string {
	n := f.Number(d)
	if f.symbol == "" {
		return n
	}
	if strings.HasPrefix(n, "-") {
		return "-" + f.symbol + " " + n[1:]
	}
	return f.symbol + " " + n
}

// Date renders t as a calendar date, or "-" for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}
