package commands

import (
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/format"
	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
	"github.com/partita-dev/partita/internal/store"
)

func newPostCommand(dir *string) *cobra.Command {
	var debits, credits []string
	var description, document string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced batch of movements",
		Example: `  partita post --debit 112=1000 --credit 31=1000 -m "Initial capital"
  partita post --debit 113=122 --credit 41=100 --credit 212=22`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]model.Entry, 0, len(debits)+len(credits))
			for _, s := range debits {
				code, amount, err := parseLeg(s)
				if err != nil {
					return err
				}
				entries = append(entries, model.Debit(code, amount, description))
			}
			for _, s := range credits {
				code, amount, err := parseLeg(s)
				if err != nil {
					return err
				}
				entries = append(entries, model.Credit(code, amount, description))
			}

			var opts []ledger.BatchOption
			if document != "" {
				docID, err := uuid.Parse(document)
				if err != nil {
					return fmt.Errorf("invalid document id %q: %w", document, err)
				}
				opts = append(opts, ledger.WithDocument(docID))
			}

			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			batchID, err := b.ledger.PostBatch(entries, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted batch %d (%d movements)\n", batchID, len(entries))
			return b.record("post", "post_batch", describeEntries(entries), strconv.FormatInt(batchID, 10))
		},
	}

	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit leg CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit leg CODE=AMOUNT (repeatable)")
	cmd.Flags().StringVarP(&description, "description", "m", "", "description for every movement")
	cmd.Flags().StringVar(&document, "document", "", "id of the originating document")

	return cmd
}

func newReverseCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <batch>",
		Short: "Post the mirror image of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid batch id %q", args[0])
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rev, err := b.ledger.ReverseBatch(batchID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reversed batch %d as batch %d\n", batchID, rev)
			return b.record("reverse", "reverse_batch", fmt.Sprintf("reversed by batch %d", rev), args[0])
		},
	}
}

func newBalanceCommand(dir *string) *cobra.Command {
	var asOf string
	var own bool

	cmd := &cobra.Command{
		Use:   "balance <code>",
		Short: "Print the balance of an account and its sub-accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf)
			if err != nil {
				return err
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			code := args[0]
			bal, err := b.chart.BalanceAsOf(code, endOfDay(at))
			if own {
				bal, err = b.chart.OwnBalance(code, endOfDay(at))
			}
			if err != nil {
				return err
			}
			full, _ := b.chart.FullName(code)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", code, full, b.fmt.Amount(bal))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "only movements up to this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&own, "own", false, "exclude sub-accounts")
	return cmd
}

func newMovementsCommand(dir *string) *cobra.Command {
	var from, to string
	var descendants, asCSV bool

	cmd := &cobra.Command{
		Use:   "movements <code>",
		Short: "List the movements of an account with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ledger.Query{Descendants: descendants}
			var err error
			if q.From, err = parseDate(from); err != nil {
				return err
			}
			var toDate time.Time
			if toDate, err = parseDate(to); err != nil {
				return err
			}
			q.To = endOfDay(toDate)

			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if asCSV {
				moves, err := b.ledger.MovementsFor(args[0], q)
				if err != nil {
					return err
				}
				return store.WriteMovements(cmd.OutOrStdout(), slices.Collect(moves))
			}
			seq, err := b.ledger.RunningBalance(args[0], q)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tBATCH\tACCOUNT\tDEBIT\tCREDIT\tBALANCE\tDESCRIPTION")
			for m, bal := range seq {
				debit, credit := b.fmt.Number(m.Amount), ""
				if m.Side == model.SideCredit {
					debit, credit = "", b.fmt.Number(m.Amount)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					format.Date(m.Timestamp), m.BatchID, m.AccountCode, debit, credit, b.fmt.Number(bal), m.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&descendants, "descendants", false, "include sub-accounts")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "export in movements.csv format")
	return cmd
}
