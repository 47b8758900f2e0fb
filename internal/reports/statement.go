package reports

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/model"
)

// StatementLine is one document, or the payment of one, on a counterparty
// statement.
type StatementLine struct {
	Date    time.Time
	Number  string
	Type    model.DocumentType
	Payment bool
	Side    model.Side
	Amount  decimal.Decimal
	Balance decimal.Decimal // running, after this line
}

// CounterpartyStatement lists what was invoiced to and from one counterparty
// and what was paid. A positive balance means the counterparty owes the
// business; purchase invoices push it negative.
type CounterpartyStatement struct {
	Counterparty string
	Window       Window
	Opening      decimal.Decimal
	Closing      decimal.Decimal
	Lines        []StatementLine

	Documents int             // issued in the window
	Invoiced  decimal.Decimal // sales invoices issued in the window
	Purchased decimal.Decimal // purchase invoices issued in the window
	Paid      int
	Overdue   int
}

// BuildCounterpartyStatement walks docs for counterparty (matched without
// regard to case). Drafts, voided documents and journal entries are left
// out. Lines dated before w.From fold into the opening balance; overdue is
// judged on now.
func BuildCounterpartyStatement(docs []*documents.Document, counterparty string, w Window, now time.Time) CounterpartyStatement {
	st := CounterpartyStatement{Counterparty: counterparty, Window: w}

	var lines []StatementLine
	for _, d := range docs {
		if !strings.EqualFold(d.Counterparty, counterparty) || !onStatement(d) {
			continue
		}
		side := model.SideDebit
		if d.Type != model.DocSalesInvoice {
			side = model.SideCredit
		}
		total := d.GrandTotal()
		lines = append(lines, StatementLine{
			Date: d.IssueDate, Number: d.Ref(), Type: d.Type, Side: side, Amount: total,
		})
		if d.Status() == model.StatusPaid && !d.PaidAt().IsZero() {
			lines = append(lines, StatementLine{
				Date: d.PaidAt(), Number: d.Ref(), Type: d.Type, Payment: true, Side: side.Opposite(), Amount: total,
			})
		}

		if !w.contains(d.IssueDate) {
			continue
		}
		st.Documents++
		switch d.Type {
		case model.DocSalesInvoice:
			st.Invoiced = st.Invoiced.Add(total)
		case model.DocPurchaseInvoice:
			st.Purchased = st.Purchased.Add(total)
		}
		if d.Status() == model.StatusPaid {
			st.Paid++
		}
		if d.IsOverdue(now) {
			st.Overdue++
		}
	}
	slices.SortStableFunc(lines, func(a, b StatementLine) int {
		return a.Date.Compare(b.Date)
	})

	bal := decimal.Zero
	for _, l := range lines {
		if !w.From.IsZero() && l.Date.Before(w.From) {
			bal = bal.Add(l.signed())
			continue
		}
		if !w.contains(l.Date) {
			continue
		}
		if st.Lines == nil {
			st.Opening = bal
		}
		bal = bal.Add(l.signed())
		l.Balance = bal
		st.Lines = append(st.Lines, l)
	}
	if st.Lines == nil {
		st.Opening = bal
	}
	st.Closing = bal
	return st
}

func onStatement(d *documents.Document) bool {
	if d.Type == model.DocJournalEntry {
		return false
	}
	switch d.Status() {
	case model.StatusIssued, model.StatusPosted, model.StatusPaid:
		return true
	}
	return false
}

func (l StatementLine) signed() decimal.Decimal {
	if l.Side == model.SideDebit {
		return l.Amount
	}
	return l.Amount.Neg()
}
