package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/importer"
	"github.com/cleared-dev/ledger/internal/runlog"
	"github.com/cleared-dev/ledger/internal/store"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statement CSV files",
		Long: `Import bank statement CSV files into the ledger.

With no arguments every CSV in import/ is imported and moved to
import/processed/ afterwards. Transactions already in the ledger are left
untouched, so importing the same file twice is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()
			return runImport(cmd, a, format, args)
		},
	}

	cmd.Flags().StringVar(&format, "format", "canonical", "statement format")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, format string, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	p, err := importer.ParserFor(format)
	if err != nil {
		return err
	}

	fromInbox := len(args) == 0
	paths := args
	if fromInbox {
		if paths, err = importer.Pending(a.root); err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(out, "No files to import.")
			return nil
		}
	}

	configured, err := a.cfg.FiscalPeriods()
	if err != nil {
		return err
	}

	var entries []runlog.Entry
	total := 0
	for _, path := range paths {
		stmt, err := importer.Read(p, path, a.cfg.Company.ID, configured)
		if err != nil {
			return err
		}

		var inserted int
		err = a.store.WithinTx(ctx, func(repo store.Repository) error {
			for _, fp := range stmt.Periods {
				if err := repo.SaveFiscalPeriod(ctx, fp); err != nil {
					return fmt.Errorf("saving fiscal period %s: %w", fp.ID, err)
				}
			}
			n, err := repo.SaveTransactions(ctx, stmt.Transactions...)
			inserted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("importing %s: %w", stmt.File, err)
		}

		if fromInbox {
			if err := importer.Archive(a.root, path); err != nil {
				return err
			}
		}

		a.log.Info().
			Str("file", stmt.File).
			Str("format", p.Format()).
			Int("parsed", len(stmt.Transactions)).
			Int("inserted", inserted).
			Msg("imported statement")
		fmt.Fprintf(out, "%s: %d transactions, %d new\n", stmt.File, len(stmt.Transactions), inserted)
		entries = append(entries, runlog.Entry{
			Operation: runlog.OpImport,
			Detail:    fmt.Sprintf("%d parsed, %d new", len(stmt.Transactions), inserted),
			Reference: stmt.File,
		})
		total += inserted
	}

	fmt.Fprintf(out, "Imported %d new transactions.\n", total)
	a.record(fmt.Sprintf("import: %d transactions", total), entries...)
	return nil
}
