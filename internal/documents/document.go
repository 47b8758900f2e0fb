// Package documents implements accounting documents (invoices, credit notes,
// journal entries), their lifecycle and the mapping from a document to the
// ledger batch that records it.
package documents

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

// BatchPoster commits a balanced batch. *ledger.Ledger implements it.
type BatchPoster interface {
	PostBatch(entries []model.Entry, opts ...ledger.BatchOption) (int64, error)
}

// CounterpartyValidator reports whether a counterparty reference (typically a
// tax identifier) is acceptable.
type CounterpartyValidator interface {
	Valid(ref string) bool
}

// CounterpartyFunc adapts a function to CounterpartyValidator.
type CounterpartyFunc func(ref string) bool

// Valid calls f(ref).
func (f CounterpartyFunc) Valid(ref string) bool { return f(ref) }

// Document is an accounting document header plus its lines. Status, lines
// and posting references change only through lifecycle methods; totals are
// always derived from lines.
type Document struct {
	ID           uuid.UUID
	Number       string
	Type         model.DocumentType
	Counterparty string
	IssueDate    time.Time
	DueDate      time.Time
	Corrects     string // number of the invoice a credit note corrects
	Notes        string

	status          model.DocumentStatus
	lines           []Line
	postedBatch     int64
	settlementBatch int64
	paidAt          time.Time
}

// NewDocument returns an empty DRAFT document of type t with a fresh id.
func NewDocument(t model.DocumentType) *Document {
	return &Document{ID: uuid.New(), Type: t, status: model.StatusDraft}
}

// Status returns the lifecycle state.
func (d *Document) Status() model.DocumentStatus { return d.status }

// Lines returns a copy of the lines.
func (d *Document) Lines() []Line { return slices.Clone(d.lines) }

// PostedBatch returns the ledger batch created by Post, or 0.
func (d *Document) PostedBatch() int64 { return d.postedBatch }

// SettlementBatch returns the ledger batch created by Settle, or 0.
func (d *Document) SettlementBatch() int64 { return d.settlementBatch }

// PaidAt returns when the document was marked paid.
func (d *Document) PaidAt() time.Time { return d.paidAt }

// Totals recomputes taxable, tax and grand totals from the current lines.
func (d *Document) Totals() Totals { return RecomputeTotals(d.lines) }

// Ref returns the number, or the id when no number was assigned.
func (d *Document) Ref() string {
	if d.Number != "" {
		return d.Number
	}
	return d.ID.String()
}

// AddLine appends a line. DRAFT only.
func (d *Document) AddLine(l Line) error {
	if err := d.requireStatus("add a line to", model.StatusDraft); err != nil {
		return err
	}
	if err := d.checkLine(len(d.lines), l); err != nil {
		return err
	}
	d.lines = append(d.lines, l)
	return nil
}

// SetLine replaces line i. DRAFT only.
func (d *Document) SetLine(i int, l Line) error {
	if err := d.requireStatus("change a line of", model.StatusDraft); err != nil {
		return err
	}
	if err := d.checkIndex(i); err != nil {
		return err
	}
	if err := d.checkLine(i, l); err != nil {
		return err
	}
	d.lines[i] = l
	return nil
}

// RemoveLine deletes line i. DRAFT only.
func (d *Document) RemoveLine(i int) error {
	if err := d.requireStatus("remove a line from", model.StatusDraft); err != nil {
		return err
	}
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.lines = slices.Delete(d.lines, i, i+1)
	return nil
}

func (d *Document) checkIndex(i int) error {
	if i < 0 || i >= len(d.lines) {
		return &model.ValidationError{Field: "line", Entry: i, Value: "", Reason: "no such line"}
	}
	return nil
}

func (d *Document) checkLine(i int, l Line) error {
	if err := l.Validate(i); err != nil {
		return err
	}
	switch d.Type {
	case model.DocJournalEntry:
		if l.DebitAccount == "" || l.CreditAccount == "" {
			return &model.ValidationError{
				Field: "debit_account", Entry: i, Value: l.DebitAccount + "/" + l.CreditAccount,
				Reason: "journal entry lines need both a debit and a credit account",
			}
		}
	case model.DocSalesInvoice:
		if l.DebitAccount != "" {
			return &model.ValidationError{
				Field: "debit_account", Entry: i, Value: l.DebitAccount,
				Reason: "sales invoices always debit receivables; set credit_account to override revenue",
			}
		}
	case model.DocPurchaseInvoice:
		if l.CreditAccount != "" {
			return &model.ValidationError{
				Field: "credit_account", Entry: i, Value: l.CreditAccount,
				Reason: "purchase invoices always credit payables; set debit_account to override expense",
			}
		}
	case model.DocCreditNote:
		if l.CreditAccount != "" {
			return &model.ValidationError{
				Field: "credit_account", Entry: i, Value: l.CreditAccount,
				Reason: "credit notes always credit receivables; set debit_account to override revenue",
			}
		}
	}
	return nil
}

// Issue moves DRAFT → ISSUED. The document needs at least one line and a
// non-zero grand total, and an attached counterparty must pass check when check is non-nil. Invoices and
// credit notes require a counterparty.
func (d *Document) Issue(check CounterpartyValidator) error {
	if err := d.requireStatus("issue", model.StatusDraft); err != nil {
		return err
	}
	if len(d.lines) == 0 {
		return &model.InvalidStateError{
			Document: d.Ref(), Op: "issue", Current: d.status, Reason: "document has no lines",
		}
	}
	if d.GrandTotal().IsZero() {
		return &model.ValidationError{Field: "lines", Entry: -1, Value: "0", Reason: "grand total must not be zero"}
	}
	if d.Counterparty == "" && d.Type != model.DocJournalEntry {
		return &model.ValidationError{Field: "counterparty", Entry: -1, Reason: "is required"}
	}
	if d.Counterparty != "" && check != nil && !check.Valid(d.Counterparty) {
		return &model.ValidationError{
			Field: "counterparty", Entry: -1, Value: d.Counterparty, Reason: "rejected by counterparty validator",
		}
	}
	d.status = model.StatusIssued
	return nil
}

// Post moves ISSUED → POSTED by committing the document's batch through
// poster. If posting fails the document stays ISSUED and the poster's error
// is returned unchanged.
func (d *Document) Post(poster BatchPoster, accts PostingAccounts) error {
	if err := d.requireStatus("post", model.StatusIssued); err != nil {
		return err
	}
	entries, err := PostingEntries(d.Type, d.lines, accts, d.Ref())
	if err != nil {
		return err
	}
	batch, err := poster.PostBatch(entries, ledger.WithDocument(d.ID))
	if err != nil {
		return err
	}
	d.postedBatch = batch
	d.status = model.StatusPosted
	return nil
}

// Void moves DRAFT or ISSUED → VOID. Posted documents are corrected with a
// new document instead.
func (d *Document) Void() error {
	if err := d.requireStatus("void", model.StatusDraft, model.StatusIssued); err != nil {
		return err
	}
	d.status = model.StatusVoid
	return nil
}

// MarkPaid moves POSTED → PAID without touching the ledger.
func (d *Document) MarkPaid(at time.Time) error {
	if err := d.requireStatus("mark paid", model.StatusPosted); err != nil {
		return err
	}
	if d.Type == model.DocJournalEntry {
		return &model.InvalidStateError{
			Document: d.Ref(), Op: "mark paid", Current: d.status, Reason: "journal entries are not settled",
		}
	}
	d.paidAt = at
	d.status = model.StatusPaid
	return nil
}

// Settle posts the settlement batch against cash and marks the document
// paid. Nothing changes if the batch is rejected.
func (d *Document) Settle(poster BatchPoster, accts PostingAccounts, cash string, at time.Time) error {
	if err := d.requireStatus("settle", model.StatusPosted); err != nil {
		return err
	}
	if d.Type == model.DocJournalEntry {
		return &model.InvalidStateError{
			Document: d.Ref(), Op: "settle", Current: d.status, Reason: "journal entries are not settled",
		}
	}
	entries, err := SettlementEntries(d.Type, d.lines, accts, cash, "settlement of "+d.Ref())
	if err != nil {
		return err
	}
	batch, err := poster.PostBatch(entries, ledger.WithDocument(d.ID))
	if err != nil {
		return err
	}
	d.settlementBatch = batch
	d.paidAt = at
	d.status = model.StatusPaid
	return nil
}

// IsOverdue reports whether an unpaid ISSUED or POSTED document is past its
// due date on now's calendar day.
func (d *Document) IsOverdue(now time.Time) bool {
	if d.status != model.StatusIssued && d.status != model.StatusPosted {
		return false
	}
	if d.DueDate.IsZero() {
		return false
	}
	return d.DaysToDue(now) < 0
}

// DaysToDue returns whole calendar days from now until the due date;
// negative once overdue.
func (d *Document) DaysToDue(now time.Time) int {
	due := dateOf(d.DueDate)
	today := dateOf(now.In(d.DueDate.Location()))
	return int(due.Sub(today).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func (d *Document) requireStatus(op string, allowed ...model.DocumentStatus) error {
	if slices.Contains(allowed, d.status) {
		return nil
	}
	return &model.InvalidStateError{Document: d.Ref(), Op: op, Current: d.status, Required: allowed}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.lines = slices.Clone(d.lines)
	return &c
}

// GrandTotal is shorthand for Totals().Grand.
func (d *Document) GrandTotal() decimal.Decimal {
	return d.Totals().Grand
}
