package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/format"
	"github.com/partita-dev/partita/internal/model"
)

func newDocCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage invoices, credit notes and journal entries",
	}
	cmd.AddCommand(
		newDocCreateCommand(dir),
		newDocLineCommand(dir),
		newDocTransitionCommand(dir, "issue", "Issue a draft document", (*documents.Service).Issue),
		newDocTransitionCommand(dir, "post", "Post an issued document to the ledger", (*documents.Service).Post),
		newDocTransitionCommand(dir, "void", "Void a draft or issued document", (*documents.Service).Void),
		newDocPayCommand(dir),
		newDocShowCommand(dir),
		newDocListCommand(dir),
		newDocOverdueCommand(dir),
	)
	return cmd
}

func newDocCreateCommand(dir *string) *cobra.Command {
	var docType, counterparty, issueDate, dueDate, corrects, notes string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			p := documents.CreateParams{
				Type:         t,
				Counterparty: counterparty,
				Corrects:     corrects,
				Notes:        notes,
			}
			if p.IssueDate, err = parseDate(issueDate); err != nil {
				return err
			}
			if p.DueDate, err = parseDate(dueDate); err != nil {
				return err
			}

			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := b.docs.Create(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (due %s)\n", d.Type, d.Number, format.Date(d.DueDate))
			return b.record("doc create", "create_document", string(d.Type)+" for "+d.Counterparty, d.Number)
		},
	}

	cmd.Flags().StringVar(&docType, "type", string(model.DocSalesInvoice), "sales_invoice, purchase_invoice, credit_note or journal_entry")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "customer or supplier reference")
	cmd.Flags().StringVar(&issueDate, "issue-date", "", "issue date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD, default issue date + default_due_days)")
	cmd.Flags().StringVar(&corrects, "corrects", "", "number of the sales invoice a credit note corrects")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")

	return cmd
}

// lineFlags are shared by doc line add and doc line set.
type lineFlags struct {
	description, quantity, price, tax, discount string
	debitAccount, creditAccount                 string
}

func (f *lineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "m", "", "line description")
	cmd.Flags().StringVar(&f.quantity, "qty", "1", "quantity")
	cmd.Flags().StringVar(&f.price, "price", "", "unit price (required)")
	cmd.Flags().StringVar(&f.tax, "tax", "0", "tax rate as a fraction, e.g. 0.22")
	cmd.Flags().StringVar(&f.discount, "discount", "0", "discount as a fraction")
	cmd.Flags().StringVar(&f.debitAccount, "debit-account", "", "account to debit instead of the default")
	cmd.Flags().StringVar(&f.creditAccount, "credit-account", "", "account to credit instead of the default")
	_ = cmd.MarkFlagRequired("price")
}

func (f *lineFlags) line() (documents.Line, error) {
	l := documents.Line{
		Description:   f.description,
		DebitAccount:  f.debitAccount,
		CreditAccount: f.creditAccount,
	}
	for _, p := range []struct {
		name string
		in   string
		out  *decimal.Decimal
	}{
		{"qty", f.quantity, &l.Quantity},
		{"price", f.price, &l.UnitPrice},
		{"tax", f.tax, &l.TaxRate},
		{"discount", f.discount, &l.Discount},
	} {
		d, err := decimal.NewFromString(p.in)
		if err != nil {
			return documents.Line{}, fmt.Errorf("invalid --%s %q: %w", p.name, p.in, err)
		}
		*p.out = d
	}
	return l, nil
}

func newDocLineCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Edit the lines of a draft document",
	}

	var add lineFlags
	addCmd := &cobra.Command{
		Use:   "add <document>",
		Short: "Append a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := add.line()
			if err != nil {
				return err
			}
			return editLines(cmd, *dir, args[0], "add_line", func(s *documents.Service) (*documents.Document, error) {
				return s.AddLine(args[0], l)
			})
		},
	}
	add.register(addCmd)

	var set lineFlags
	setCmd := &cobra.Command{
		Use:   "set <document> <n>",
		Short: "Replace line n (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := lineIndex(args[1])
			if err != nil {
				return err
			}
			l, err := set.line()
			if err != nil {
				return err
			}
			return editLines(cmd, *dir, args[0], "set_line", func(s *documents.Service) (*documents.Document, error) {
				return s.SetLine(args[0], i, l)
			})
		},
	}
	set.register(setCmd)

	removeCmd := &cobra.Command{
		Use:   "remove <document> <n>",
		Short: "Delete line n (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := lineIndex(args[1])
			if err != nil {
				return err
			}
			return editLines(cmd, *dir, args[0], "remove_line", func(s *documents.Service) (*documents.Document, error) {
				return s.RemoveLine(args[0], i)
			})
		},
	}

	cmd.AddCommand(addCmd, setCmd, removeCmd)
	return cmd
}

func lineIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid line number %q", s)
	}
	return n - 1, nil
}

func editLines(cmd *cobra.Command, dir, ref, action string, fn func(*documents.Service) (*documents.Document, error)) error {
	b, err := openBooks(dir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	d, err := fn(b.docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lines, total %s\n", d.Ref(), len(d.Lines()), b.fmt.Amount(d.GrandTotal()))
	return b.record("doc line", action, "total "+d.GrandTotal().String(), d.Ref())
}

func newDocTransitionCommand(dir *string, name, short string, op func(*documents.Service, string) (*documents.Document, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <document>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := op(b.docs, args[0])
			if err != nil {
				return err
			}
			details := fmt.Sprintf("status %s", d.Status())
			if d.PostedBatch() != 0 {
				details += fmt.Sprintf(", batch %d", d.PostedBatch())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", d.Ref(), details)
			return b.record("doc "+name, name+"_document", details, d.Ref())
		},
	}
}

func newDocPayCommand(dir *string) *cobra.Command {
	var date, cash string
	var noSettle bool

	cmd := &cobra.Command{
		Use:   "pay <document>",
		Short: "Mark a posted document paid, posting the settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paidAt, err := parseDate(date)
			if err != nil {
				return err
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cash == "" {
				cash = b.cfg.Posting.Cash
			}
			if noSettle {
				cash = ""
			}

			d, err := b.docs.Pay(args[0], paidAt, cash)
			if err != nil {
				return err
			}
			details := "paid " + format.Date(d.PaidAt())
			if d.SettlementBatch() != 0 {
				details += fmt.Sprintf(", settlement batch %d", d.SettlementBatch())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", d.Ref(), details)
			return b.record("doc pay", "pay_document", details, d.Ref())
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "payment date (YYYY-MM-DD, default now)")
	cmd.Flags().StringVar(&cash, "cash", "", "cash or bank account (default posting_accounts.cash)")
	cmd.Flags().BoolVar(&noSettle, "no-settle", false, "record the payment without posting a settlement")
	return cmd
}

func newDocShowCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <document>",
		Short: "Print a document with its lines and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := b.docs.Get(args[0])
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), b, d)
		},
	}
}

func printDocument(out io.Writer, b *books, d *documents.Document) error {
	heading(out, fmt.Sprintf("%s %s", d.Ref(), d.Type))
	fmt.Fprintf(out, "Status:       %s\n", d.Status())
	fmt.Fprintf(out, "Counterparty: %s\n", d.Counterparty)
	fmt.Fprintf(out, "Issued:       %s\n", format.Date(d.IssueDate))
	fmt.Fprintf(out, "Due:          %s\n", format.Date(d.DueDate))
	if d.Corrects != "" {
		fmt.Fprintf(out, "Corrects:     %s\n", d.Corrects)
	}
	if d.PostedBatch() != 0 {
		fmt.Fprintf(out, "Batch:        %d\n", d.PostedBatch())
	}
	if !d.PaidAt().IsZero() {
		fmt.Fprintf(out, "Paid:         %s\n", format.Date(d.PaidAt()))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDESCRIPTION\tQTY\tPRICE\tTAX\tTOTAL")
	for i, l := range d.Lines() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, l.Description, l.Quantity, b.fmt.Number(l.UnitPrice), l.TaxRate, b.fmt.Number(l.Total()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	t := d.Totals()
	fmt.Fprintf(out, "Taxable: %s\nTax:     %s\nTotal:   %s\n", b.fmt.Amount(t.Taxable), b.fmt.Amount(t.Tax), b.fmt.Amount(t.Grand))
	return nil
}

func newDocListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printDocuments(cmd.OutOrStdout(), b, b.docs.List(), time.Time{})
		},
	}
}

func newDocOverdueCommand(dir *string) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List issued and posted documents past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseDate(asOf)
			if err != nil {
				return err
			}
			if now.IsZero() {
				now = time.Now()
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printDocuments(cmd.OutOrStdout(), b, b.docs.Overdue(now), now)
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date (YYYY-MM-DD, default today)")
	return cmd
}

// printDocuments writes one row per document. With a non-zero now the days
// past due are shown.
func printDocuments(out io.Writer, b *books, docs []*documents.Document, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "NUMBER\tTYPE\tSTATUS\tCOUNTERPARTY\tDUE\tTOTAL"
	if !now.IsZero() {
		header += "\tDAYS LATE"
	}
	fmt.Fprintln(w, header)
	for _, d := range docs {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
			d.Ref(), d.Type, d.Status(), d.Counterparty, format.Date(d.DueDate), b.fmt.Amount(d.GrandTotal()))
		if !now.IsZero() {
			row += fmt.Sprintf("\t%d", -d.DaysToDue(now))
		}
		fmt.Fprintln(w, row)
	}
	return w.Flush()
}
