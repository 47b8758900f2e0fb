package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/importer"
	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

func newImportCommand(dir *string) *cobra.Command {
	var formatName string
	var accts importer.Accounts

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Post a bank statement, one batch per row",
		Long: `Post a bank statement CSV, one batch per row. Money in debits the bank
account and credits --income; money out debits --expense and credits the bank.
Without a file every CSV in <dir>/import/ is imported and moved to
import/processed/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(formatName)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q", formatName)
			}
			b, err := openBooks(*dir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				n, err := importFile(b, parser, accts, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: posted %d batches\n", args[0], n)
				return nil
			}

			files, err := importer.Scan(b.dir)
			if err != nil {
				return err
			}
			for _, f := range files {
				n, err := importFile(b, parser, accts, f.Path)
				if err != nil {
					return err
				}
				if err := importer.MarkProcessed(b.dir, f.Name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: posted %d batches\n", f.Name, n)
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "generic", "statement format: generic or chase")
	cmd.Flags().StringVar(&accts.Bank, "bank", "112", "bank account code")
	cmd.Flags().StringVar(&accts.Income, "income", "42", "account credited for money in")
	cmd.Flags().StringVar(&accts.Expense, "expense", "52", "account debited for money out")

	return cmd
}

// importFile validates every row before posting any, so a bad row leaves
// the ledger untouched.
func importFile(b *books, parser importer.Parser, accts importer.Accounts, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	txns, err := parser.Parse(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var batches [][]model.Entry
	for i, tx := range txns {
		entries := importer.Entries(tx, accts)
		if entries == nil {
			continue
		}
		if err := ledger.ValidateEntries(entries, b.chart); err != nil {
			return 0, fmt.Errorf("%s row %d: %w", filepath.Base(path), i+2, err)
		}
		batches = append(batches, entries)
	}

	first := int64(0)
	for _, entries := range batches {
		batchID, err := b.ledger.PostBatch(entries)
		if err != nil {
			return 0, err
		}
		if first == 0 {
			first = batchID
		}
	}
	if len(batches) == 0 {
		return 0, nil
	}
	details := fmt.Sprintf("%d batches from %s starting at batch %d", len(batches), filepath.Base(path), first)
	return len(batches), b.record("import", "import_statement", details, filepath.Base(path))
}
