package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/auditlog"
	"github.com/partita-dev/partita/internal/config"
	"github.com/partita-dev/partita/internal/gitops"
	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string
	var language string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new books directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, name, language, useGit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized books for %s at %s\n", name, absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&language, "language", "", "locale for amounts, e.g. it-IT")
	cmd.Flags().BoolVar(&useGit, "git", false, "version the books with git, one commit per change")

	return cmd
}

func runInit(dir, name, language string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	for _, d := range []string{"accounts", "ledger", "documents", "logs", "import"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	if language != "" {
		cfg.Locale.Language = language
	}
	cfg.Git.Enabled = useGit
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	// Validate the default chart before writing it.
	chart := ledger.NewChart()
	if err := chart.Restore(ledger.DefaultChart()); err != nil {
		return fmt.Errorf("building default chart: %w", err)
	}
	if err := store.New(dir).SaveAccounts(chart.Accounts()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	if err := auditlog.New(dir).Record("init", "init", "Initialized books for "+name, ""); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	if !useGit {
		return nil
	}
	repo, err := gitops.Init(dir, gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail})
	if err != nil {
		return err
	}
	if _, err := repo.Commit("init: Initialize " + name); err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	return nil
}
