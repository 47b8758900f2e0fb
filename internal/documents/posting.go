package documents

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// PostingAccounts are the chart codes the posting map targets.
type PostingAccounts struct {
	Receivables   string
	Revenue       string
	VATPayable    string
	Payables      string
	Expense       string
	VATReceivable string
}

// PostingEntries derives the balanced batch for a document of type t. Legs
// with a zero amount are omitted. Line account overrides replace the default
// revenue or expense account for that line's taxable amount.
//
//	sales invoice     D receivables grand; C revenue taxable; C VAT payable tax
//	purchase invoice  D expense taxable; D VAT receivable tax; C payables grand
//	credit note       D revenue taxable; D VAT payable tax; C receivables grand
//	journal entry     per line D debit account, C credit account, line total
func PostingEntries(t model.DocumentType, lines []Line, accts PostingAccounts, desc string) ([]model.Entry, error) {
	totals := RecomputeTotals(lines)
	var b entryBuilder
	b.desc = desc

	switch t {
	case model.DocSalesInvoice:
		if err := accts.require(t, "receivables", "revenue", "vat_payable"); err != nil {
			return nil, err
		}
		b.add(model.SideDebit, accts.Receivables, totals.Grand)
		for _, g := range groupTaxable(lines, accts.Revenue, func(l Line) string { return l.CreditAccount }) {
			b.add(model.SideCredit, g.code, g.amount)
		}
		b.add(model.SideCredit, accts.VATPayable, totals.Tax)

	case model.DocPurchaseInvoice:
		if err := accts.require(t, "expense", "vat_receivable", "payables"); err != nil {
			return nil, err
		}
		for _, g := range groupTaxable(lines, accts.Expense, func(l Line) string { return l.DebitAccount }) {
			b.add(model.SideDebit, g.code, g.amount)
		}
		b.add(model.SideDebit, accts.VATReceivable, totals.Tax)
		b.add(model.SideCredit, accts.Payables, totals.Grand)

	case model.DocCreditNote:
		if err := accts.require(t, "revenue", "vat_payable", "receivables"); err != nil {
			return nil, err
		}
		for _, g := range groupTaxable(lines, accts.Revenue, func(l Line) string { return l.DebitAccount }) {
			b.add(model.SideDebit, g.code, g.amount)
		}
		b.add(model.SideDebit, accts.VATPayable, totals.Tax)
		b.add(model.SideCredit, accts.Receivables, totals.Grand)

	case model.DocJournalEntry:
		for i, l := range lines {
			if l.DebitAccount == "" || l.CreditAccount == "" {
				return nil, &model.ValidationError{
					Field: "debit_account", Entry: i, Value: l.DebitAccount + "/" + l.CreditAccount,
					Reason: "journal entry lines need both a debit and a credit account",
				}
			}
			b.add(model.SideDebit, l.DebitAccount, l.Total())
			b.add(model.SideCredit, l.CreditAccount, l.Total())
		}

	default:
		return nil, &model.ValidationError{Field: "type", Entry: -1, Value: string(t), Reason: "unknown document type"}
	}
	return b.entries, nil
}

// SettlementEntries derives the batch that settles a posted document's grand
// total against cash. Journal entries are not settled.
func SettlementEntries(t model.DocumentType, lines []Line, accts PostingAccounts, cash, desc string) ([]model.Entry, error) {
	grand := RecomputeTotals(lines).Grand
	if cash == "" {
		return nil, &model.ValidationError{Field: "cash_account", Entry: -1, Reason: "is required"}
	}
	var b entryBuilder
	b.desc = desc

	switch t {
	case model.DocSalesInvoice:
		if err := accts.require(t, "receivables"); err != nil {
			return nil, err
		}
		b.add(model.SideDebit, cash, grand)
		b.add(model.SideCredit, accts.Receivables, grand)
	case model.DocPurchaseInvoice:
		if err := accts.require(t, "payables"); err != nil {
			return nil, err
		}
		b.add(model.SideDebit, accts.Payables, grand)
		b.add(model.SideCredit, cash, grand)
	case model.DocCreditNote:
		if err := accts.require(t, "receivables"); err != nil {
			return nil, err
		}
		b.add(model.SideDebit, accts.Receivables, grand)
		b.add(model.SideCredit, cash, grand)
	default:
		return nil, &model.ValidationError{Field: "type", Entry: -1, Value: string(t), Reason: "document type is not settled"}
	}
	return b.entries, nil
}

type entryBuilder struct {
	desc    string
	entries []model.Entry
}

func (b *entryBuilder) add(side model.Side, code string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	b.entries = append(b.entries, model.Entry{AccountCode: code, Amount: amount, Side: side, Description: b.desc})
}

type codeAmount struct {
	code   string
	amount decimal.Decimal
}

// groupTaxable sums line taxable amounts per account, in order of first use.
func groupTaxable(lines []Line, fallback string, override func(Line) string) []codeAmount {
	var out []codeAmount
	idx := make(map[string]int)
	for _, l := range lines {
		code := override(l)
		if code == "" {
			code = fallback
		}
		i, ok := idx[code]
		if !ok {
			i = len(out)
			idx[code] = i
			out = append(out, codeAmount{code: code})
		}
		out[i].amount = out[i].amount.Add(l.Taxable())
	}
	return out
}

func (a PostingAccounts) require(t model.DocumentType, names ...string) error {
	for _, name := range names {
		var v string
		switch name {
		case "receivables":
			v = a.Receivables
		case "revenue":
			v = a.Revenue
		case "vat_payable":
			v = a.VATPayable
		case "payables":
			v = a.Payables
		case "expense":
			v = a.Expense
		case "vat_receivable":
			v = a.VATReceivable
		}
		if v == "" {
			return &model.ValidationError{
				Field:  "posting_accounts." + name,
				Entry:  -1,
				Reason: fmt.Sprintf("is required to post a %s", t),
			}
		}
	}
	return nil
}
