// Package store defines the persistence port used by the ledger core and
// provides in-memory and SQLite adapters for it.
package store

import (
	"context"
	"errors"

	"github.com/cleared-dev/ledger/internal/model"
)

// ErrDuplicateReference is returned when inserting a journal entry whose
// reference already exists in the same company and fiscal period.
var ErrDuplicateReference = errors.New("journal entry reference already exists")

// ClassificationFilter narrows transaction queries by classification state.
type ClassificationFilter int

const (
	AnyClassification ClassificationFilter = iota
	OnlyClassified
	OnlyUnclassified
)

// TransactionFilter selects bank transactions. An empty FiscalPeriodID
// matches every period of the company.
type TransactionFilter struct {
	CompanyID      string
	FiscalPeriodID string
	Classification ClassificationFilter
}

func (f TransactionFilter) match(t model.BankTransaction) bool {
	if t.CompanyID != f.CompanyID {
		return false
	}
	if f.FiscalPeriodID != "" && t.FiscalPeriodID != f.FiscalPeriodID {
		return false
	}
	switch f.Classification {
	case OnlyClassified:
		return t.Classified()
	case OnlyUnclassified:
		return !t.Classified()
	}
	return true
}

// Repository is the set of reads and writes the ledger core performs.
// Transactions come back ordered by date then insertion order; fiscal
// periods by start date.
type Repository interface {
	SaveFiscalPeriod(ctx context.Context, p model.FiscalPeriod) error
	FiscalPeriod(ctx context.Context, companyID, periodID string) (model.FiscalPeriod, error)
	FiscalPeriods(ctx context.Context, companyID string) ([]model.FiscalPeriod, error)

	// SaveTransactions inserts transactions whose key is new and returns how
	// many were inserted. Existing transactions are left untouched.
	SaveTransactions(ctx context.Context, txns ...model.BankTransaction) (int, error)
	Transaction(ctx context.Context, key model.TransactionKey) (model.BankTransaction, error)
	Transactions(ctx context.Context, f TransactionFilter) ([]model.BankTransaction, error)
	SetClassification(ctx context.Context, key model.TransactionKey, c model.Classification) error

	InsertJournalEntry(ctx context.Context, e model.JournalEntry) error
	HasJournalEntry(ctx context.Context, companyID, periodID, reference string) (bool, error)
	JournalEntries(ctx context.Context, companyID string) ([]model.JournalEntry, error)
	// DeleteJournalEntry removes one entry and its lines.
	DeleteJournalEntry(ctx context.Context, companyID, periodID, reference string) (bool, error)
	// DeleteJournalEntries removes every entry of the company whose reference
	// starts with refPrefix, together with its lines.
	DeleteJournalEntries(ctx context.Context, companyID, refPrefix string) (int, error)
	PostedLines(ctx context.Context, companyID, periodID string) ([]model.PostedLine, error)
}

// Store is a Repository that can run a function as one unit of work.
// If fn returns an error nothing it wrote is kept.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

func periodNotFound(companyID, periodID string) error {
	return &model.NotFoundError{Kind: "fiscal period", CompanyID: companyID, Key: periodID}
}

func transactionNotFound(key model.TransactionKey) error {
	return &model.NotFoundError{Kind: "transaction", CompanyID: key.CompanyID, Key: key.FiscalPeriodID + "/" + key.ID}
}
