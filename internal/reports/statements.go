package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

// TrialBalanceRow is one account with movements.
type TrialBalanceRow struct {
	Code    string
	Name    string
	Kind    model.AccountKind
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal // natural sign
}

// TrialBalance lists debit and credit totals per account as of a time.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balanced reports whether total debits equal total credits.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// BuildTrialBalance returns a row for every account with movements up to
// asOf (zero = all), in chart order.
func BuildTrialBalance(snap ledger.Snapshot, asOf time.Time) TrialBalance {
	a := newActivity(snap, Window{To: asOf})
	tb := TrialBalance{AsOf: asOf}
	for _, acct := range snap.Accounts {
		d, c := a.debit[acct.Code], a.credit[acct.Code]
		if d.IsZero() && c.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			Code:    acct.Code,
			Name:    acct.Name,
			Kind:    acct.Kind,
			Debit:   d,
			Credit:  c,
			Balance: a.own(acct.Code),
		})
		tb.TotalDebit = tb.TotalDebit.Add(d)
		tb.TotalCredit = tb.TotalCredit.Add(c)
	}
	return tb
}

// BalanceSheet is the position as of a time. Earnings is revenue minus
// expenses not yet closed to equity.
type BalanceSheet struct {
	AsOf        time.Time
	Assets      Section
	Liabilities Section
	Equity      Section
	Earnings    decimal.Decimal
}

// TotalLiabilitiesAndEquity is liabilities + equity + earnings.
func (bs BalanceSheet) TotalLiabilitiesAndEquity() decimal.Decimal {
	return bs.Liabilities.Total.Add(bs.Equity.Total).Add(bs.Earnings)
}

// Balanced reports whether assets equal liabilities + equity + earnings.
func (bs BalanceSheet) Balanced() bool {
	return bs.Assets.Total.Equal(bs.TotalLiabilitiesAndEquity())
}

// BuildBalanceSheet rolls balances up the chart as of asOf (zero = all).
func BuildBalanceSheet(snap ledger.Snapshot, asOf time.Time) BalanceSheet {
	a := newActivity(snap, Window{To: asOf})
	revenue := a.section(model.KindRevenue)
	expense := a.section(model.KindExpense)
	return BalanceSheet{
		AsOf:        asOf,
		Assets:      a.section(model.KindAsset),
		Liabilities: a.section(model.KindLiability),
		Equity:      a.section(model.KindEquity),
		Earnings:    revenue.Total.Sub(expense.Total),
	}
}

// IncomeStatement is revenue and expense activity over a window.
type IncomeStatement struct {
	Window    Window
	Revenue   Section
	Expenses  Section
	NetIncome decimal.Decimal
}

// BuildIncomeStatement sums revenue and expense movements within w.
func BuildIncomeStatement(snap ledger.Snapshot, w Window) IncomeStatement {
	a := newActivity(snap, w)
	revenue := a.section(model.KindRevenue)
	expense := a.section(model.KindExpense)
	return IncomeStatement{
		Window:    w,
		Revenue:   revenue,
		Expenses:  expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
