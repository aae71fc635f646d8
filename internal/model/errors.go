package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnclassified         = errors.New("transaction is not classified")
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrImbalancedPosting    = errors.New("imbalanced posting")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrBatchPartialFailure  = errors.New("batch partially failed")
)

// NotFoundError reports a referenced account, fiscal period, or transaction
// that does not exist (or, for accounts, is no longer active).
type NotFoundError struct {
	Kind      string // "account", "fiscal period", "transaction"
	CompanyID string
	Key       string
	Reason    string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found for company %s", e.Kind, e.Key, e.CompanyID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnclassifiedError is returned when posting a transaction with no classification.
type UnclassifiedError struct {
	Transaction TransactionKey
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("transaction %s is not classified; classify it before posting", e.Transaction)
}

func (e *UnclassifiedError) Is(target error) bool { return target == ErrUnclassified }

// MissingConfigurationError names the company, the missing setting and how to fix it.
type MissingConfigurationError struct {
	CompanyID string
	Setting   string
	Fix       string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("company %s has no %s: %s", e.CompanyID, e.Setting, e.Fix)
}

func (e *MissingConfigurationError) Is(target error) bool { return target == ErrMissingConfiguration }

// ImbalancedPostingError is an invariant violation on a generated entry.
type ImbalancedPostingError struct {
	Reference string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Detail    string
}

func (e *ImbalancedPostingError) Error() string {
	msg := fmt.Sprintf("entry %s: debits (%s) != credits (%s)", e.Reference, e.Debit.String(), e.Credit.String())
	if e.Detail != "" {
		msg = fmt.Sprintf("entry %s: %s", e.Reference, e.Detail)
	}
	return msg
}

func (e *ImbalancedPostingError) Is(target error) bool { return target == ErrImbalancedPosting }

// InvalidTransactionError reports a transaction whose amounts cannot be posted.
type InvalidTransactionError struct {
	Transaction TransactionKey
	Reason      string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %s", e.Transaction, e.Reason)
}

func (e *InvalidTransactionError) Is(target error) bool { return target == ErrInvalidTransaction }

// Skipped records a transaction left out of a best-effort batch.
type Skipped struct {
	Transaction TransactionKey
	Reason      string
}

// BatchPartialFailure carries the outcome of a batch that skipped items.
type BatchPartialFailure struct {
	Posted  int
	Skipped []Skipped
}

func (e *BatchPartialFailure) Error() string {
	ids := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		ids[i] = s.Transaction.ID
	}
	return fmt.Sprintf("%d posted, %d skipped (%s)", e.Posted, len(e.Skipped), strings.Join(ids, ", "))
}

func (e *BatchPartialFailure) Is(target error) bool { return target == ErrBatchPartialFailure }
