// Package ledgersync keeps the stored journal in step with the classified
// bank transactions.
package ledgersync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Poster builds the journal entry for one classified transaction.
type Poster interface {
	Post(txn model.BankTransaction) (model.JournalEntry, error)
	OpeningBalances(period model.FiscalPeriod, balances []journal.OpeningBalance, offsetCode string) (model.JournalEntry, error)
}

// Orchestrator posts, regenerates and records opening balances.
type Orchestrator struct {
	store store.Store
	post  Poster
	log   zerolog.Logger
}

// New creates an Orchestrator.
func New(st store.Store, post Poster, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: st, post: post, log: log}
}

// Sync posts every classified transaction of the company that has no
// journal entry yet, in one unit of work. The first failure aborts the run
// and nothing is kept. It returns the number of entries created.
func (o *Orchestrator) Sync(ctx context.Context, companyID string) (int, error) {
	posted := 0
	err := o.store.WithinTx(ctx, func(repo store.Repository) error {
		posted = 0
		txns, err := repo.Transactions(ctx, store.TransactionFilter{
			CompanyID:      companyID,
			Classification: store.OnlyClassified,
		})
		if err != nil {
			return fmt.Errorf("listing classified transactions: %w", err)
		}

		for _, txn := range txns {
			has, err := repo.HasJournalEntry(ctx, companyID, txn.FiscalPeriodID, id.TransactionReference(txn.ID))
			if err != nil {
				return fmt.Errorf("checking journal for %s: %w", txn.Key(), err)
			}
			if has {
				continue
			}
			if err := o.postOne(ctx, repo, txn); err != nil {
				return err
			}
			posted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("syncing journal for %s: %w", companyID, err)
	}

	o.log.Info().Str("company", companyID).Int("posted", posted).Msg("journal synced")
	return posted, nil
}

func (o *Orchestrator) postOne(ctx context.Context, repo store.Repository, txn model.BankTransaction) error {
	e, err := o.post.Post(txn)
	if err != nil {
		return err
	}
	if err := repo.InsertJournalEntry(ctx, e); err != nil {
		return fmt.Errorf("saving %s: %w", e.Reference, err)
	}
	return nil
}

// Report is the outcome of RegenerateAll.
type Report struct {
	Deleted int
	Posted  int
	Skipped []model.Skipped
}

// Failure returns a *model.BatchPartialFailure when anything was skipped,
// nil otherwise.
func (r Report) Failure() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	return &model.BatchPartialFailure{Posted: r.Posted, Skipped: r.Skipped}
}

// RegenerateAll deletes every transaction-derived journal entry of the
// company, then re-posts each classified transaction in its own unit of
// work. A transaction that cannot be posted is logged and skipped; the rest
// still post. Opening-balance entries are kept. Errors listing or deleting
// abort the run.
func (o *Orchestrator) RegenerateAll(ctx context.Context, companyID string) (Report, error) {
	var rep Report
	var txns []model.BankTransaction
	err := o.store.WithinTx(ctx, func(repo store.Repository) error {
		n, err := repo.DeleteJournalEntries(ctx, companyID, id.TransactionPrefix)
		if err != nil {
			return fmt.Errorf("deleting journal entries: %w", err)
		}
		rep.Deleted = n

		txns, err = repo.Transactions(ctx, store.TransactionFilter{
			CompanyID:      companyID,
			Classification: store.OnlyClassified,
		})
		if err != nil {
			return fmt.Errorf("listing classified transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("regenerating journal for %s: %w", companyID, err)
	}

	for _, txn := range txns {
		err := o.store.WithinTx(ctx, func(repo store.Repository) error {
			return o.postOne(ctx, repo, txn)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			o.log.Warn().
				Err(err).
				Str("company", companyID).
				Str("transaction", txn.Key().String()).
				Msg("skipping transaction")
			rep.Skipped = append(rep.Skipped, model.Skipped{Transaction: txn.Key(), Reason: err.Error()})
			continue
		}
		rep.Posted++
	}

	o.log.Info().
		Str("company", companyID).
		Int("deleted", rep.Deleted).
		Int("posted", rep.Posted).
		Int("skipped", len(rep.Skipped)).
		Msg("journal regenerated")
	return rep, nil
}

// RecordOpeningBalances replaces a period's opening-balance entry with one
// built from balances, offset against offsetCode.
func (o *Orchestrator) RecordOpeningBalances(ctx context.Context, companyID, periodID string, balances []journal.OpeningBalance, offsetCode string) (model.JournalEntry, error) {
	var entry model.JournalEntry
	err := o.store.WithinTx(ctx, func(repo store.Repository) error {
		period, err := repo.FiscalPeriod(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		e, err := o.post.OpeningBalances(period, balances, offsetCode)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteJournalEntry(ctx, companyID, periodID, e.Reference); err != nil {
			return fmt.Errorf("replacing %s: %w", e.Reference, err)
		}
		if err := repo.InsertJournalEntry(ctx, e); err != nil {
			return fmt.Errorf("saving %s: %w", e.Reference, err)
		}
		entry = e
		return nil
	})
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("recording opening balances for %s/%s: %w", companyID, periodID, err)
	}

	o.log.Info().Str("company", companyID).Str("period", periodID).Int("lines", len(entry.Lines)).Msg("opening balances recorded")
	return entry, nil
}
