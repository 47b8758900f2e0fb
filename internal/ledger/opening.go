package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// DefaultEquityCode is the default chart's share capital account, the usual
// counterpart of opening balances.
const DefaultEquityCode = "31"

// PostOpening gives code an initial balance of amount, in the account's
// natural sign, balanced against equity. A negative amount opens the
// account on its contra side.
func (l *Ledger) PostOpening(code string, amount decimal.Decimal, equity string) (int64, error) {
	if amount.IsZero() {
		return 0, &model.ValidationError{Field: "amount", Entry: -1, Value: amount.String(), Reason: "opening balance must not be zero"}
	}
	if code == equity {
		return 0, &model.ValidationError{Field: "account_code", Entry: -1, Value: code, Reason: "cannot open an account against itself"}
	}
	acct, err := l.chart.Account(code)
	if err != nil {
		return 0, err
	}

	side := acct.Kind.NormalSide()
	if amount.IsNegative() {
		side = side.Opposite()
		amount = amount.Abs()
	}
	return l.PostBatch([]model.Entry{
		{AccountCode: code, Amount: amount, Side: side, Description: "opening balance"},
		{AccountCode: equity, Amount: amount, Side: side.Opposite(), Description: "opening balance of " + code},
	})
}
