package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/classify"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/runlog"
	"github.com/cleared-dev/ledger/internal/store"
)

type classifyOptions struct {
	period string
	txn    string
	debit  string
	credit string
}

func newClassifyCommand(g *globalFlags) *cobra.Command {
	var opts classifyOptions

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify bank transactions with the categorization rules",
		Long: `Classify bank transactions.

Without --txn every unclassified transaction (of --period, or of all
periods) is matched against rules/categorization-rules.yaml. With --txn a
single transaction is classified by the rules, or, when --debit and
--credit are given, with that explicit account pair.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.txn != "" && opts.period == "" {
				return errors.New("--txn needs --period")
			}
			if (opts.debit == "") != (opts.credit == "") {
				return errors.New("--debit and --credit must be given together")
			}
			if opts.debit != "" && opts.txn == "" {
				return errors.New("--debit and --credit need --txn")
			}

			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()
			return runClassify(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.period, "period", "", "fiscal period id (default: all periods)")
	cmd.Flags().StringVar(&opts.txn, "txn", "", "classify only this transaction id")
	cmd.Flags().StringVar(&opts.debit, "debit", "", "debit account code for an explicit classification")
	cmd.Flags().StringVar(&opts.credit, "credit", "", "credit account code for an explicit classification")
	return cmd
}

func runClassify(cmd *cobra.Command, a *app, opts classifyOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	companyID := a.cfg.Company.ID
	svc := classify.NewService(a.store, a.rules, a.accounts)

	var entry runlog.Entry
	switch {
	case opts.debit != "":
		key := model.TransactionKey{CompanyID: companyID, FiscalPeriodID: opts.period, ID: opts.txn}
		if err := svc.SetPair(ctx, key, opts.debit, opts.credit); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: debit %s, credit %s\n", opts.txn, opts.debit, opts.credit)
		entry = runlog.Entry{Operation: runlog.OpClassify, Detail: fmt.Sprintf("debit %s credit %s", opts.debit, opts.credit), Reference: key.String()}

	case opts.txn != "":
		key := model.TransactionKey{CompanyID: companyID, FiscalPeriodID: opts.period, ID: opts.txn}
		o, err := svc.Classify(ctx, key)
		if err != nil {
			return err
		}
		switch o.Status {
		case classify.Matched:
			fmt.Fprintf(out, "%s: %s by rule %s\n", opts.txn, o.AccountCode, o.RuleID)
		case classify.AlreadyClassified:
			fmt.Fprintf(out, "%s: already classified\n", opts.txn)
		default:
			fmt.Fprintf(out, "%s: no rule matched\n", opts.txn)
		}
		entry = runlog.Entry{Operation: runlog.OpClassify, Detail: o.Status.String(), Reference: key.String()}

	default:
		n, err := svc.AutoClassify(ctx, companyID, opts.period)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Classified %d transactions.\n", n)
		entry = runlog.Entry{Operation: runlog.OpClassify, Detail: fmt.Sprintf("%d classified", n), Reference: opts.period}
	}

	remaining, err := a.store.Transactions(ctx, store.TransactionFilter{
		CompanyID:      companyID,
		FiscalPeriodID: opts.period,
		Classification: store.OnlyUnclassified,
	})
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		fmt.Fprintf(out, "\n%d unclassified:\n", len(remaining))
		printTransactions(out, remaining)
	}

	a.record("classify: "+entry.Detail, entry)
	return nil
}

func printTransactions(w io.Writer, txns []model.BankTransaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tID\tDATE\tDESCRIPTION\tDEBIT\tCREDIT")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.FiscalPeriodID, t.ID, t.Date.Format("2006-01-02"), t.Description,
			amount(t.Debit), amount(t.Credit))
	}
	tw.Flush()
}
