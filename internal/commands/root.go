// Package commands implements the ledger CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
	"github.com/cleared-dev/ledger/internal/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	repo     string
	config   string
	envFile  string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry books from classified bank transactions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.repo, "repo", ".", "ledger repository root")
	pf.StringVar(&g.config, "config", config.FileName, "config file, relative to --repo unless absolute")
	pf.StringVar(&g.envFile, "env-file", "", "load environment variables from this file (default: .env if present)")
	pf.StringVar(&g.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(g),
		newClassifyCommand(g),
		newSyncCommand(g),
		newRegenerateCommand(g),
		newOpeningCommand(g),
		newTrialBalanceCommand(g),
		newAccountLedgerCommand(g),
	)

	return rootCmd
}
