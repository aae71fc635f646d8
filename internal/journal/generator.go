// Package journal turns classified bank transactions into balanced
// double-entry journal entries.
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

// AccountLookup resolves chart-of-accounts entries and the company's
// designated bank/cash account.
type AccountLookup interface {
	AccountChecker
	DefaultCashAccount(companyID string) (model.Account, bool)
}

// Generator builds journal entries. It holds no ledger state: whether a
// transaction was already posted is the caller's concern.
type Generator struct {
	accounts  AccountLookup
	createdBy string
	now       func() time.Time
	newID     id.Source
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the source of CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDs sets the source of entry and line ids.
func WithIDs(src id.Source) Option {
	return func(g *Generator) { g.newID = src }
}

// NewGenerator creates a Generator that stamps entries with createdBy.
func NewGenerator(accounts AccountLookup, createdBy string, opts ...Option) *Generator {
	g := &Generator{
		accounts:  accounts,
		createdBy: createdBy,
		now:       time.Now,
		newID:     id.UUID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Post builds the journal entry for a classified transaction.
//
// An explicit debit/credit pair is posted as given. A single account code is
// posted against the company's cash account: money in debits cash and
// credits the classified account, money out does the reverse.
func (g *Generator) Post(txn model.BankTransaction) (model.JournalEntry, error) {
	if err := checkAmounts(txn); err != nil {
		return model.JournalEntry{}, err
	}

	var debitCode, creditCode string
	switch txn.Classification.Mode() {
	case model.ExplicitPair:
		debitCode = txn.Classification.DebitAccount
		creditCode = txn.Classification.CreditAccount

	case model.SingleAccount:
		cash, ok := g.accounts.DefaultCashAccount(txn.CompanyID)
		if !ok {
			return model.JournalEntry{}, &model.MissingConfigurationError{
				CompanyID: txn.CompanyID,
				Setting:   "active bank/cash account",
				Fix:       "mark an active asset account as default under bank_accounts in the config, or classify the transaction with an explicit debit/credit pair",
			}
		}
		if txn.IsCredit() {
			debitCode, creditCode = cash.Code, txn.Classification.AccountCode
		} else {
			debitCode, creditCode = txn.Classification.AccountCode, cash.Code
		}

	default:
		return model.JournalEntry{}, &model.UnclassifiedError{Transaction: txn.Key()}
	}

	for _, code := range []string{debitCode, creditCode} {
		if err := g.requireActive(txn.CompanyID, code); err != nil {
			return model.JournalEntry{}, fmt.Errorf("posting transaction %s: %w", txn.Key(), err)
		}
	}

	amount := txn.Amount()
	entryID := g.newID()
	e := model.JournalEntry{
		ID:                  entryID,
		CompanyID:           txn.CompanyID,
		FiscalPeriodID:      txn.FiscalPeriodID,
		Date:                txn.Date,
		Description:         txn.Description,
		Reference:           id.TransactionReference(txn.ID),
		SourceTransactionID: txn.ID,
		CreatedBy:           g.createdBy,
		CreatedAt:           g.now().UTC(),
		Lines: []model.JournalLine{
			{
				ID:                  g.newID(),
				EntryID:             entryID,
				AccountCode:         debitCode,
				Debit:               amount,
				Credit:              decimal.Zero,
				Description:         txn.Description,
				SourceTransactionID: txn.ID,
			},
			{
				ID:                  g.newID(),
				EntryID:             entryID,
				AccountCode:         creditCode,
				Debit:               decimal.Zero,
				Credit:              amount,
				Description:         txn.Description,
				SourceTransactionID: txn.ID,
			},
		},
	}

	mustBalance(e, g.accounts, amount)
	return e, nil
}

func checkAmounts(txn model.BankTransaction) error {
	switch {
	case txn.Debit.IsNegative() || txn.Credit.IsNegative():
		return &model.InvalidTransactionError{Transaction: txn.Key(), Reason: "debit and credit must not be negative"}
	case txn.Debit.IsZero() && txn.Credit.IsZero():
		return &model.InvalidTransactionError{Transaction: txn.Key(), Reason: "debit and credit are both zero"}
	case !txn.Debit.IsZero() && !txn.Credit.IsZero():
		return &model.InvalidTransactionError{Transaction: txn.Key(), Reason: "debit and credit are both set"}
	}
	return nil
}

func (g *Generator) requireActive(companyID, code string) error {
	acct, ok := g.accounts.Account(companyID, code)
	if !ok {
		return &model.NotFoundError{Kind: "account", CompanyID: companyID, Key: code}
	}
	if !acct.Active {
		return &model.NotFoundError{Kind: "account", CompanyID: companyID, Key: code, Reason: "account is inactive"}
	}
	return nil
}

// OpeningBalance is an account's balance at the start of a period, signed
// in the account's normal direction (positive = normal balance).
type OpeningBalance struct {
	AccountCode string
	Amount      decimal.Decimal
}

// OpeningBalances builds the OB- entry for a period. Each balance becomes a
// line on the account's normal side (the opposite side when negative) and
// the difference is carried by offsetCode.
func (g *Generator) OpeningBalances(period model.FiscalPeriod, balances []OpeningBalance, offsetCode string) (model.JournalEntry, error) {
	if err := g.requireActive(period.CompanyID, offsetCode); err != nil {
		return model.JournalEntry{}, fmt.Errorf("opening balance offset: %w", err)
	}

	entryID := g.newID()
	ref := id.OpeningReference(period.ID)
	desc := fmt.Sprintf("Opening balances %s", period.ID)
	e := model.JournalEntry{
		ID:             entryID,
		CompanyID:      period.CompanyID,
		FiscalPeriodID: period.ID,
		Date:           period.Start,
		Description:    desc,
		Reference:      ref,
		CreatedBy:      g.createdBy,
		CreatedAt:      g.now().UTC(),
	}

	seen := make(map[string]bool)
	for _, b := range balances {
		if b.Amount.IsZero() {
			continue
		}
		if b.AccountCode == offsetCode {
			return model.JournalEntry{}, fmt.Errorf("opening balance for %s: account is the offset account", b.AccountCode)
		}
		if seen[b.AccountCode] {
			return model.JournalEntry{}, fmt.Errorf("opening balance for %s given twice", b.AccountCode)
		}
		seen[b.AccountCode] = true

		acct, ok := g.accounts.Account(period.CompanyID, b.AccountCode)
		if !ok {
			return model.JournalEntry{}, &model.NotFoundError{Kind: "account", CompanyID: period.CompanyID, Key: b.AccountCode}
		}
		debit := acct.Nature.DebitNormal() == b.Amount.IsPositive()
		e.Lines = append(e.Lines, g.line(entryID, acct.Code, b.Amount.Abs(), debit, desc))
	}
	if len(e.Lines) == 0 {
		return model.JournalEntry{}, fmt.Errorf("no non-zero opening balances for period %s", period.ID)
	}

	debit, credit := e.Totals()
	switch diff := debit.Sub(credit); {
	case diff.IsPositive():
		e.Lines = append(e.Lines, g.line(entryID, offsetCode, diff, false, desc))
	case diff.IsNegative():
		e.Lines = append(e.Lines, g.line(entryID, offsetCode, diff.Neg(), true, desc))
	}

	total, _ := e.Totals()
	mustBalance(e, g.accounts, total)
	return e, nil
}

func (g *Generator) line(entryID, code string, amount decimal.Decimal, debit bool, desc string) model.JournalLine {
	l := model.JournalLine{
		ID:          g.newID(),
		EntryID:     entryID,
		AccountCode: code,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Description: desc,
	}
	if debit {
		l.Debit = amount
	} else {
		l.Credit = amount
	}
	return l
}
