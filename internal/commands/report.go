package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/balance"
	"github.com/cleared-dev/ledger/internal/model"
)

func newTrialBalanceCommand(g *globalFlags) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Show the trial balance for a fiscal period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()

			agg := balance.NewAggregator(a.store, a.accounts)
			rows, err := agg.TrialBalance(cmd.Context(), a.cfg.Company.ID, period)
			if err != nil {
				return err
			}
			totals, err := agg.BalancesByNature(cmd.Context(), a.cfg.Company.ID, period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Trial balance %s, %s\n\n", a.cfg.Company.Name, period)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "CODE\tACCOUNT\tNATURE\tOPENING\tDEBITS\tCREDITS\tCLOSING\t")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					r.AccountCode, r.AccountName, r.Nature,
					r.Opening.StringFixed(2), r.PeriodDebits.StringFixed(2),
					r.PeriodCredits.StringFixed(2), r.Closing.StringFixed(2))
			}
			tw.Flush()

			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			for _, n := range model.Natures {
				fmt.Fprintf(tw, "%s\t%s\t\n", n, totals[n].StringFixed(2))
			}
			tw.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "fiscal period id (required)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func newAccountLedgerCommand(g *globalFlags) *cobra.Command {
	var period, code string

	cmd := &cobra.Command{
		Use:   "account-ledger",
		Short: "Show one account's lines and running balance for a fiscal period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()

			agg := balance.NewAggregator(a.store, a.accounts)
			l, err := agg.AccountLedger(cmd.Context(), a.cfg.Company.ID, period, code)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s), %s\n\n", l.Account.Code, l.Account.Name, l.Account.Nature, period)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tREFERENCE\tDESCRIPTION\tDEBIT\tCREDIT\tBALANCE")
			fmt.Fprintf(tw, "%s\t\tOpening balance\t\t\t%s\n", l.Period.Start.Format("2006-01-02"), l.Opening.StringFixed(2))
			for _, line := range l.Lines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					line.Date.Format("2006-01-02"), line.Reference, line.Description,
					amount(line.Debit), amount(line.Credit), line.Balance.StringFixed(2))
			}
			fmt.Fprintf(tw, "%s\t\tClosing balance\t%s\t%s\t%s\n",
				l.Period.End.Format("2006-01-02"), l.Debits.StringFixed(2), l.Credits.StringFixed(2), l.Closing.StringFixed(2))
			tw.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "fiscal period id (required)")
	_ = cmd.MarkFlagRequired("period")
	cmd.Flags().StringVar(&code, "account", "", "account code (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

// amount formats a money value, leaving zero blank.
func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
