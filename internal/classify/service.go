package classify

import (
	"context"
	"fmt"

	"github.com/cleared-dev/ledger/internal/logger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/rules"
	"github.com/cleared-dev/ledger/internal/store"
)

// Accounts resolves chart-of-accounts entries.
type Accounts interface {
	Account(companyID, code string) (model.Account, bool)
}

// Status is the result of classifying one transaction.
type Status int

const (
	Unmatched Status = iota
	Matched
	AlreadyClassified
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case AlreadyClassified:
		return "already classified"
	default:
		return "unmatched"
	}
}

// Outcome reports what Classify did with a transaction.
type Outcome struct {
	Transaction model.TransactionKey
	Status      Status
	RuleID      string
	AccountCode string
}

// Service classifies stored transactions.
type Service struct {
	store    store.Store
	rules    rules.Source
	accounts Accounts
}

// NewService creates a Service.
func NewService(st store.Store, rs rules.Source, accounts Accounts) *Service {
	return &Service{store: st, rules: rs, accounts: accounts}
}

func (s *Service) ruleSet(ctx context.Context, companyID string) (*RuleSet, error) {
	active, err := s.rules.ActiveRules(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("loading rules for %s: %w", companyID, err)
	}
	return NewRuleSet(active)
}

// Classify applies the company's rules to one transaction. A transaction
// that already carries a classification is left as it is.
func (s *Service) Classify(ctx context.Context, key model.TransactionKey) (Outcome, error) {
	rs, err := s.ruleSet(ctx, key.CompanyID)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Transaction: key}
	err = s.store.WithinTx(ctx, func(repo store.Repository) error {
		txn, err := repo.Transaction(ctx, key)
		if err != nil {
			return err
		}
		if txn.Classified() {
			out.Status = AlreadyClassified
			out.AccountCode = txn.Classification.AccountCode
			return nil
		}
		r, ok := rs.Match(txn.Description)
		if !ok {
			return nil
		}
		if err := repo.SetClassification(ctx, key, model.Classification{AccountCode: r.AccountCode}); err != nil {
			return fmt.Errorf("classifying %s: %w", key, err)
		}
		out.Status = Matched
		out.RuleID = r.ID
		out.AccountCode = r.AccountCode
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("transaction", key.String()).
		Stringer("status", out.Status).
		Str("rule", out.RuleID).
		Msg("classify")
	return out, nil
}

// AutoClassify classifies every unclassified transaction of a period (all
// periods when periodID is empty) in one unit of work and returns how many
// were newly classified. An unknown period is a NotFoundError. The first
// failure aborts the whole run.
func (s *Service) AutoClassify(ctx context.Context, companyID, periodID string) (int, error) {
	rs, err := s.ruleSet(ctx, companyID)
	if err != nil {
		return 0, err
	}

	classified := 0
	err = s.store.WithinTx(ctx, func(repo store.Repository) error {
		if periodID != "" {
			if _, err := repo.FiscalPeriod(ctx, companyID, periodID); err != nil {
				return err
			}
		}
		txns, err := repo.Transactions(ctx, store.TransactionFilter{
			CompanyID:      companyID,
			FiscalPeriodID: periodID,
			Classification: store.OnlyUnclassified,
		})
		if err != nil {
			return fmt.Errorf("listing unclassified transactions: %w", err)
		}
		for _, txn := range txns {
			r, ok := rs.Match(txn.Description)
			if !ok {
				continue
			}
			if err := repo.SetClassification(ctx, txn.Key(), model.Classification{AccountCode: r.AccountCode}); err != nil {
				return fmt.Errorf("classifying %s: %w", txn.Key(), err)
			}
			classified++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("company", companyID).
		Str("period", periodID).
		Int("classified", classified).
		Msg("auto-classify")
	return classified, nil
}

// SetPair records an explicit debit/credit classification. Both accounts
// must exist and be active.
func (s *Service) SetPair(ctx context.Context, key model.TransactionKey, debit, credit string) error {
	if debit == "" || credit == "" {
		return fmt.Errorf("classifying %s: both debit and credit accounts are required", key)
	}
	if debit == credit {
		return fmt.Errorf("classifying %s: debit and credit accounts are both %s", key, debit)
	}
	for _, code := range []string{debit, credit} {
		acct, ok := s.accounts.Account(key.CompanyID, code)
		if !ok {
			return &model.NotFoundError{Kind: "account", CompanyID: key.CompanyID, Key: code}
		}
		if !acct.Active {
			return &model.NotFoundError{Kind: "account", CompanyID: key.CompanyID, Key: code, Reason: "account is inactive"}
		}
	}

	return s.store.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.Transaction(ctx, key); err != nil {
			return err
		}
		return repo.SetClassification(ctx, key, model.Classification{DebitAccount: debit, CreditAccount: credit})
	})
}
