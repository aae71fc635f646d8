package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/ledgersync"
	"github.com/cleared-dev/ledger/internal/runlog"
)

func newOpeningCommand(g *globalFlags) *cobra.Command {
	var (
		period  string
		amounts []string
		offset  string
	)

	cmd := &cobra.Command{
		Use:   "opening",
		Short: "Record opening balances for a fiscal period",
		Long: `Record opening balances as an OB-<period> journal entry dated on the
period's first day. Amounts are signed in the account's normal direction.
The difference is posted to the offset account. Running the command again
replaces the period's opening-balance entry.`,
		Example: `  ledger opening --period 2025-01 --account 1010=12500.00 --account 2010=830.15`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			balances, err := parseBalances(amounts)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()

			if offset == "" {
				offset = a.cfg.Posting.OpeningOffsetAccount
			}
			o := ledgersync.New(a.store, a.generator(), a.log)
			e, err := o.RecordOpeningBalances(cmd.Context(), a.cfg.Company.ID, period, balances, offset)
			if err != nil {
				return err
			}

			total, _ := e.Totals()
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: %d lines, %s each side.\n", e.Reference, len(e.Lines), amount(total))
			a.record("opening balances: "+period, runlog.Entry{
				Operation: runlog.OpOpening,
				Detail:    fmt.Sprintf("%d lines, total %s", len(e.Lines), total.StringFixed(2)),
				Reference: e.Reference,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "fiscal period id (required)")
	_ = cmd.MarkFlagRequired("period")
	cmd.Flags().StringArrayVar(&amounts, "account", nil, "CODE=AMOUNT opening balance (repeatable)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&offset, "offset", "", "offset account (default: posting.opening_offset_account)")
	return cmd
}

func parseBalances(args []string) ([]journal.OpeningBalance, error) {
	out := make([]journal.OpeningBalance, 0, len(args))
	for _, arg := range args {
		code, amt, ok := strings.Cut(arg, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("--account %q: want CODE=AMOUNT", arg)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(amt))
		if err != nil {
			return nil, fmt.Errorf("--account %q: invalid amount: %w", arg, err)
		}
		out = append(out, journal.OpeningBalance{AccountCode: code, Amount: d})
	}
	return out, nil
}
