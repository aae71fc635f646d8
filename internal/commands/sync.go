package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/ledgersync"
	"github.com/cleared-dev/ledger/internal/runlog"
)

func newSyncCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Post journal entries for newly classified transactions",
		Long: `Post a journal entry for every classified transaction that has none yet.

The whole run is one unit of work: if any transaction cannot be posted
nothing is written and the error names the transaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()

			o := ledgersync.New(a.store, a.generator(), a.log)
			n, err := o.Sync(cmd.Context(), a.cfg.Company.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %d journal entries.\n", n)
			a.record(fmt.Sprintf("sync: %d entries", n), runlog.Entry{
				Operation: runlog.OpSync,
				Detail:    fmt.Sprintf("%d posted", n),
			})
			return nil
		},
	}
}

func newRegenerateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild every transaction journal entry from scratch",
		Long: `Delete every journal entry derived from a bank transaction (TXN-
references) and post each classified transaction again. Opening-balance
entries (OB- references) are not derived from transactions; they are kept
and are not counted in the totals below.

A transaction that cannot be posted is skipped and reported; the others
are still posted. The command exits non-zero when anything was skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			o := ledgersync.New(a.store, a.generator(), a.log)
			rep, err := o.RegenerateAll(cmd.Context(), a.cfg.Company.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Deleted %d, posted %d journal entries.\n", rep.Deleted, rep.Posted)
			for _, s := range rep.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", s.Transaction.ID, s.Reason)
			}

			entries := append([]runlog.Entry{{
				Operation: runlog.OpRegenerate,
				Detail:    fmt.Sprintf("%d deleted, %d posted, %d skipped", rep.Deleted, rep.Posted, len(rep.Skipped)),
			}}, runlog.Skipped(time.Now().UTC(), a.cfg.Company.ID, rep.Skipped)...)
			a.record(fmt.Sprintf("regenerate: %d entries", rep.Posted), entries...)

			return rep.Failure()
		},
	}
}
