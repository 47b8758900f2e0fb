package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/format"
	"github.com/partita-dev/partita/internal/model"
	"github.com/partita-dev/partita/internal/reports"
)

func newReportCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial statements",
	}
	cmd.AddCommand(
		newTrialBalanceCommand(dir),
		newBalanceSheetCommand(dir),
		newIncomeCommand(dir),
		newStatementCommand(dir),
	)
	return cmd
}

func newTrialBalanceCommand(dir *string) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Debit and credit totals per account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf)
			if err != nil {
				return err
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			tb := reports.BuildTrialBalance(b.chart.Snapshot(), endOfDay(at))

			out := cmd.OutOrStdout()
			heading(out, "Trial balance as of "+asOfLabel(at))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tACCOUNT\tDEBIT\tCREDIT")
			for _, r := range tb.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Code, r.Name, b.fmt.Number(r.Debit), b.fmt.Number(r.Credit))
			}
			fmt.Fprintf(w, "\tTotal\t%s\t%s\n", b.fmt.Number(tb.TotalDebit), b.fmt.Number(tb.TotalCredit))
			if err := w.Flush(); err != nil {
				return err
			}
			if !tb.Balanced() {
				return fmt.Errorf("trial balance does not balance: debits %s, credits %s", tb.TotalDebit, tb.TotalCredit)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "only movements up to this date (YYYY-MM-DD)")
	return cmd
}

func newBalanceSheetCommand(dir *string) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf)
			if err != nil {
				return err
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			bs := reports.BuildBalanceSheet(b.chart.Snapshot(), endOfDay(at))

			out := cmd.OutOrStdout()
			heading(out, "Balance sheet as of "+asOfLabel(at))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			writeSection(w, b.fmt, "Assets", bs.Assets)
			writeSection(w, b.fmt, "Liabilities", bs.Liabilities)
			writeSection(w, b.fmt, "Equity", bs.Equity)
			fmt.Fprintf(w, "\tCurrent earnings\t%s\n", b.fmt.Amount(bs.Earnings))
			fmt.Fprintf(w, "\tTotal liabilities and equity\t%s\n", b.fmt.Amount(bs.TotalLiabilitiesAndEquity()))
			if err := w.Flush(); err != nil {
				return err
			}
			if !bs.Balanced() {
				return fmt.Errorf("balance sheet does not balance: assets %s, liabilities and equity %s",
					bs.Assets.Total, bs.TotalLiabilitiesAndEquity())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "only movements up to this date (YYYY-MM-DD)")
	return cmd
}

func newIncomeCommand(dir *string) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "income",
		Short: "Revenue and expenses over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var win reports.Window
			var err error
			if win.From, err = parseDate(from); err != nil {
				return err
			}
			if win.To, err = parseDate(to); err != nil {
				return err
			}
			win.To = endOfDay(win.To)

			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			is := reports.BuildIncomeStatement(b.chart.Snapshot(), win)

			out := cmd.OutOrStdout()
			heading(out, fmt.Sprintf("Income statement %s to %s", format.Date(win.From), format.Date(win.To)))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			writeSection(w, b.fmt, "Revenue", is.Revenue)
			writeSection(w, b.fmt, "Expenses", is.Expenses)
			fmt.Fprintf(w, "\tNet income\t%s\n", b.fmt.Amount(is.NetIncome))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	return cmd
}

func newStatementCommand(dir *string) *cobra.Command {
	var counterparty, from, to string

	cmd := &cobra.Command{
		Use:     "statement",
		Short:   "Documents and payments of one counterparty with a running balance",
		Example: `  partita report statement --counterparty "ACME S.p.A." --from 2025-01-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var win reports.Window
			var err error
			if win.From, err = parseDate(from); err != nil {
				return err
			}
			if win.To, err = parseDate(to); err != nil {
				return err
			}
			win.To = endOfDay(win.To)

			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st := reports.BuildCounterpartyStatement(b.docs.List(), counterparty, win, time.Now())

			out := cmd.OutOrStdout()
			heading(out, fmt.Sprintf("Statement for %s %s to %s", counterparty, format.Date(win.From), format.Date(win.To)))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDOCUMENT\tTYPE\tDEBIT\tCREDIT\tBALANCE")
			fmt.Fprintf(w, "\tOpening balance\t\t\t\t%s\n", b.fmt.Number(st.Opening))
			for _, l := range st.Lines {
				debit, credit := b.fmt.Number(l.Amount), ""
				if l.Side == model.SideCredit {
					debit, credit = "", b.fmt.Number(l.Amount)
				}
				kind := string(l.Type)
				if l.Payment {
					kind = "payment"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					format.Date(l.Date), l.Number, kind, debit, credit, b.fmt.Number(l.Balance))
			}
			fmt.Fprintf(w, "\tClosing balance\t\t\t\t%s\n", b.fmt.Number(st.Closing))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d documents, invoiced %s, purchased %s, %d paid, %d overdue\n",
				st.Documents, b.fmt.Amount(st.Invoiced), b.fmt.Amount(st.Purchased), st.Paid, st.Overdue)
			return nil
		},
	}

	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty as recorded on documents")
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("counterparty")
	return cmd
}

func writeSection(w io.Writer, f *format.Formatter, title string, s reports.Section) {
	fmt.Fprintf(w, "%s\t\t\n", title)
	for _, l := range s.Lines {
		fmt.Fprintf(w, "%s\t%s%s\t%s\n", l.Code, strings.Repeat("  ", l.Level-1), l.Name, f.Amount(l.Balance))
	}
	fmt.Fprintf(w, "\tTotal %s\t%s\n", strings.ToLower(title), f.Amount(s.Total))
}

func asOfLabel(t time.Time) string {
	if t.IsZero() {
		return "today"
	}
	return format.Date(t)
}
