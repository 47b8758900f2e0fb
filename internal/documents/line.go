package documents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

var one = decimal.NewFromInt(1)

// Line is one item of a document. Amounts are exact; nothing is rounded.
type Line struct {
	Description string          `yaml:"description" validate:"max=500"`
	Quantity    decimal.Decimal `yaml:"quantity"`
	UnitPrice   decimal.Decimal `yaml:"unit_price"`
	TaxRate     decimal.Decimal `yaml:"tax_rate"`
	Discount    decimal.Decimal `yaml:"discount,omitempty"` // fraction in [0,1]

	// Account overrides. Journal entry lines must set both.
	DebitAccount  string `yaml:"debit_account,omitempty" validate:"omitempty,max=20"`
	CreditAccount string `yaml:"credit_account,omitempty" validate:"omitempty,max=20"`
}

// Taxable returns quantity × unit price × (1 − discount).
func (l Line) Taxable() decimal.Decimal {
	gross := l.Quantity.Mul(l.UnitPrice)
	if l.Discount.IsZero() {
		return gross
	}
	return gross.Mul(one.Sub(l.Discount))
}

// Tax returns taxable × tax rate.
func (l Line) Tax() decimal.Decimal {
	return l.Taxable().Mul(l.TaxRate)
}

// Total returns taxable + tax.
func (l Line) Total() decimal.Decimal {
	return l.Taxable().Add(l.Tax())
}

var lineValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the line's constraints. index is reported in the error.
func (l Line) Validate(index int) error {
	switch {
	case !l.Quantity.IsPositive():
		return lineError(index, "quantity", l.Quantity, "must be greater than zero")
	case l.UnitPrice.IsNegative():
		return lineError(index, "unit_price", l.UnitPrice, "must not be negative")
	case !inUnitRange(l.TaxRate):
		return lineError(index, "tax_rate", l.TaxRate, "must be between 0 and 1")
	case !inUnitRange(l.Discount):
		return lineError(index, "discount", l.Discount, "must be between 0 and 1")
	}

	if err := lineValidate.Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		fe := verrs[0]
		return &model.ValidationError{
			Field:  toSnake(fe.Field()),
			Entry:  index,
			Value:  fmt.Sprint(fe.Value()),
			Reason: "must be at most " + fe.Param() + " characters",
		}
	}
	return nil
}

func lineError(index int, field string, v decimal.Decimal, reason string) error {
	return &model.ValidationError{Field: field, Entry: index, Value: v.String(), Reason: reason}
}

func inUnitRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}

// toSnake turns a Go field name into its yaml key: DebitAccount -> debit_account.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Totals are the amounts derived from a document's lines.
type Totals struct {
	Taxable decimal.Decimal
	Tax     decimal.Decimal
	Grand   decimal.Decimal
}

// RecomputeTotals sums lines. Grand is always Taxable + Tax.
func RecomputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Taxable = t.Taxable.Add(l.Taxable())
		t.Tax = t.Tax.Add(l.Tax())
	}
	t.Grand = t.Taxable.Add(t.Tax)
	return t
}
