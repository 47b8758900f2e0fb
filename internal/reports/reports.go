// Package reports builds trial balance, balance sheet, income statement and
// counterparty statement data from a consistent snapshot. Rendering is left
// to the caller.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

// Window selects movements by timestamp. Zero ends are open; both ends are
// inclusive.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// activity holds per-account debit and credit sums for a window, plus the
// chart needed to roll them up.
type activity struct {
	accounts []model.Account
	byCode   map[string]model.Account
	debit    map[string]decimal.Decimal
	credit   map[string]decimal.Decimal
	memo     map[string]decimal.Decimal
}

func newActivity(snap ledger.Snapshot, w Window) *activity {
	a := &activity{
		accounts: snap.Accounts,
		byCode:   make(map[string]model.Account, len(snap.Accounts)),
		debit:    make(map[string]decimal.Decimal),
		credit:   make(map[string]decimal.Decimal),
		memo:     make(map[string]decimal.Decimal),
	}
	for _, acct := range snap.Accounts {
		a.byCode[acct.Code] = acct
	}
	for _, m := range snap.Movements {
		if !w.contains(m.Timestamp) {
			continue
		}
		if m.Side == model.SideDebit {
			a.debit[m.AccountCode] = a.debit[m.AccountCode].Add(m.Amount)
		} else {
			a.credit[m.AccountCode] = a.credit[m.AccountCode].Add(m.Amount)
		}
	}
	return a
}

// own is the natural-sign balance of movements posted directly to code.
func (a *activity) own(code string) decimal.Decimal {
	net := a.debit[code].Sub(a.credit[code])
	if a.byCode[code].Kind.DebitNormal() {
		return net
	}
	return net.Neg()
}

// total is own plus the totals of all children.
func (a *activity) total(code string) decimal.Decimal {
	if v, ok := a.memo[code]; ok {
		return v
	}
	sum := a.own(code)
	for _, ch := range a.byCode[code].Children {
		sum = sum.Add(a.total(ch))
	}
	a.memo[code] = sum
	return sum
}

func (a *activity) level(code string) int {
	n := 0
	for code != "" {
		n++
		code = a.byCode[code].ParentCode
	}
	return n
}

// Line is one account row of a sectioned report.
type Line struct {
	Code    string
	Name    string
	Level   int
	Balance decimal.Decimal
}

// Section groups the accounts of one kind. Total is the sum of its roots.
type Section struct {
	Kind  model.AccountKind
	Lines []Line
	Total decimal.Decimal
}

func (a *activity) section(kind model.AccountKind) Section {
	s := Section{Kind: kind}
	for _, acct := range a.accounts {
		if acct.Kind != kind {
			continue
		}
		bal := a.total(acct.Code)
		s.Lines = append(s.Lines, Line{
			Code:    acct.Code,
			Name:    acct.Name,
			Level:   a.level(acct.Code),
			Balance: bal,
		})
		if acct.IsRoot() {
			s.Total = s.Total.Add(bal)
		}
	}
	return s
}
