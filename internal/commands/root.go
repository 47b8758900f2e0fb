package commands

import (
	"github.com/spf13/cobra"

	"github.com/partita-dev/partita/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:     "partita",
		Short:   "Double-entry bookkeeping for small businesses",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", ".", "books directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(&dir),
		newPostCommand(&dir),
		newReverseCommand(&dir),
		newBalanceCommand(&dir),
		newMovementsCommand(&dir),
		newReportCommand(&dir),
		newDocCommand(&dir),
		newImportCommand(&dir),
	)

	return rootCmd
}
