package documents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/partita-dev/partita/internal/model"
)

// documentRecord is the persisted YAML form of a Document. Totals are not
// stored; they are recomputed from lines on load.
type documentRecord struct {
	ID              string       `yaml:"id"`
	Number          string       `yaml:"number"`
	Type            string       `yaml:"type"`
	Status          string       `yaml:"status"`
	Counterparty    string       `yaml:"counterparty,omitempty"`
	IssueDate       string       `yaml:"issue_date,omitempty"`
	DueDate         string       `yaml:"due_date,omitempty"`
	Corrects        string       `yaml:"corrects,omitempty"`
	Notes           string       `yaml:"notes,omitempty"`
	PostedBatch     int64        `yaml:"posted_batch,omitempty"`
	SettlementBatch int64        `yaml:"settlement_batch,omitempty"`
	PaidAt          string       `yaml:"paid_at,omitempty"`
	Lines           []lineRecord `yaml:"lines"`
}

type lineRecord struct {
	Description   string `yaml:"description"`
	Quantity      string `yaml:"quantity"`
	UnitPrice     string `yaml:"unit_price"`
	TaxRate       string `yaml:"tax_rate"`
	Discount      string `yaml:"discount,omitempty"`
	DebitAccount  string `yaml:"debit_account,omitempty"`
	CreditAccount string `yaml:"credit_account,omitempty"`
}

const dateFormat = "2006-01-02"

// MarshalYAML implements yaml.Marshaler.
func (d *Document) MarshalYAML() (any, error) {
	rec := documentRecord{
		ID:              d.ID.String(),
		Number:          d.Number,
		Type:            string(d.Type),
		Status:          string(d.status),
		Counterparty:    d.Counterparty,
		IssueDate:       formatDate(d.IssueDate),
		DueDate:         formatDate(d.DueDate),
		Corrects:        d.Corrects,
		Notes:           d.Notes,
		PostedBatch:     d.postedBatch,
		SettlementBatch: d.settlementBatch,
		Lines:           make([]lineRecord, len(d.lines)),
	}
	if !d.paidAt.IsZero() {
		rec.PaidAt = d.paidAt.Format(time.RFC3339)
	}
	for i, l := range d.lines {
		rec.Lines[i] = lineRecord{
			Description:   l.Description,
			Quantity:      l.Quantity.String(),
			UnitPrice:     l.UnitPrice.String(),
			TaxRate:       l.TaxRate.String(),
			DebitAccount:  l.DebitAccount,
			CreditAccount: l.CreditAccount,
		}
		if !l.Discount.IsZero() {
			rec.Lines[i].Discount = l.Discount.String()
		}
	}
	return rec, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var rec documentRecord
	if err := node.Decode(&rec); err != nil {
		return err
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("parsing id %q: %w", rec.ID, err)
	}
	typ, err := model.ParseDocumentType(rec.Type)
	if err != nil {
		return err
	}
	status, err := model.ParseDocumentStatus(rec.Status)
	if err != nil {
		return err
	}

	out := Document{
		ID:              id,
		Number:          rec.Number,
		Type:            typ,
		Counterparty:    rec.Counterparty,
		Corrects:        rec.Corrects,
		Notes:           rec.Notes,
		status:          status,
		postedBatch:     rec.PostedBatch,
		settlementBatch: rec.SettlementBatch,
	}
	if out.IssueDate, err = parseDate(rec.IssueDate); err != nil {
		return fmt.Errorf("parsing issue_date: %w", err)
	}
	if out.DueDate, err = parseDate(rec.DueDate); err != nil {
		return fmt.Errorf("parsing due_date: %w", err)
	}
	if rec.PaidAt != "" {
		if out.paidAt, err = time.Parse(time.RFC3339, rec.PaidAt); err != nil {
			return fmt.Errorf("parsing paid_at: %w", err)
		}
	}

	for i, lr := range rec.Lines {
		l := Line{
			Description:   lr.Description,
			DebitAccount:  lr.DebitAccount,
			CreditAccount: lr.CreditAccount,
		}
		fields := []struct {
			name string
			raw  string
			dst  *decimal.Decimal
		}{
			{"quantity", lr.Quantity, &l.Quantity},
			{"unit_price", lr.UnitPrice, &l.UnitPrice},
			{"tax_rate", lr.TaxRate, &l.TaxRate},
			{"discount", lr.Discount, &l.Discount},
		}
		for _, f := range fields {
			if f.raw == "" {
				continue
			}
			v, err := decimal.NewFromString(f.raw)
			if err != nil {
				return fmt.Errorf("line %d: parsing %s %q: %w", i, f.name, f.raw, err)
			}
			*f.dst = v
		}
		out.lines = append(out.lines, l)
	}

	*d = out
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateFormat, s)
}
