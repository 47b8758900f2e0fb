package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

func newAccountCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(dir),
		newAccountListCommand(dir),
		newAccountRemoveCommand(dir),
	)
	return cmd
}

func newAccountAddCommand(dir *string) *cobra.Command {
	var kind, parent, description, opening string
	var grouping bool

	cmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Add an account to the chart",
		Example: `  partita account add 113.1 "ACME receivable" --parent 113
  partita account add 115 "Savings" --parent 11 --opening 2500`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount decimal.Decimal
			if opening != "" {
				var err error
				if amount, err = decimal.NewFromString(opening); err != nil {
					return fmt.Errorf("invalid opening balance %q: %w", opening, err)
				}
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var k model.AccountKind
			if parent != "" && kind == "" {
				p, err := b.chart.Account(parent)
				if err != nil {
					return err
				}
				k = p.Kind
			} else if k, err = model.ParseAccountKind(kind); err != nil {
				return err
			}

			var opts []ledger.AccountOption
			if grouping {
				opts = append(opts, ledger.Grouping())
			}
			if description != "" {
				opts = append(opts, ledger.WithDescription(description))
			}

			acct, err := b.chart.AddAccount(args[0], args[1], k, parent, opts...)
			if err != nil {
				return err
			}
			full, _ := b.chart.FullName(acct.Code)
			details := full
			if opening != "" {
				batchID, err := b.ledger.PostOpening(acct.Code, amount, b.cfg.Posting.Equity)
				if err != nil {
					if rmErr := b.chart.RemoveAccount(acct.Code); rmErr != nil {
						b.log.WithError(rmErr).WithField("account", acct.Code).Warn("removing account after failed opening")
					}
					return err
				}
				details = fmt.Sprintf("%s, opening %s in batch %d", full, amount, batchID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", acct.Code, full, acct.Kind)
			if opening != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Opening balance %s against %s\n", b.fmt.Amount(amount), b.cfg.Posting.Equity)
			}
			return b.record("account add", "add_account", details, acct.Code)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "asset, liability, equity, revenue or expense (defaults to the parent's)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent account code")
	cmd.Flags().BoolVar(&grouping, "grouping", false, "summary account that cannot be posted to")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&opening, "opening", "", "opening balance, posted against the opening equity account")

	return cmd
}

func newAccountListCommand(dir *string) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the chart with balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			accts := b.chart.Accounts()
			if kind != "" {
				k, err := model.ParseAccountKind(kind)
				if err != nil {
					return err
				}
				accts = b.chart.ByKind(k)
			}

			balances := b.chart.Balances(time.Time{})
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, a := range accts {
				level, _ := b.chart.Level(a.Code)
				marker := ""
				if !a.Postable {
					marker = " *"
				}
				fmt.Fprintf(w, "%s\t%s%s%s\t%s\t%s\n",
					a.Code, strings.Repeat("  ", level-1), a.Name, marker, a.Kind, b.fmt.Amount(balances[a.Code]))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only accounts of this kind")
	return cmd
}

func newAccountRemoveCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code>",
		Short: "Remove an account that was never posted to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			full, err := b.chart.FullName(args[0])
			if err != nil {
				return err
			}
			if err := b.chart.RemoveAccount(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s\n", args[0], full)
			return b.record("account remove", "remove_account", full, args[0])
		},
	}
}
