package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	Reference   string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.Reference, e.Description)
}

// AccountChecker tests whether an account code exists in a company's chart.
type AccountChecker interface {
	Account(companyID, code string) (model.Account, bool)
}

// ValidateEntry enforces the posting invariants on one journal entry.
func ValidateEntry(e model.JournalEntry, accounts AccountChecker) []ValidationError {
	var errs []ValidationError

	// Invariant 1: the entry balances at full precision.
	debit, credit := e.Totals()
	if !debit.Equal(credit) {
		errs = append(errs, ValidationError{
			Invariant:   1,
			Reference:   e.Reference,
			Description: fmt.Sprintf("debits (%s) != credits (%s)", debit.String(), credit.String()),
		})
	}

	// Invariant 2: at least one debit and one credit line.
	if len(e.Lines) < 2 {
		errs = append(errs, ValidationError{
			Invariant:   2,
			Reference:   e.Reference,
			Description: fmt.Sprintf("entry has %d line(s), need at least 2", len(e.Lines)),
		})
	}

	for i, l := range e.Lines {
		// Invariant 3: exactly one of debit/credit per line.
		if l.Debit.IsZero() == l.Credit.IsZero() {
			errs = append(errs, ValidationError{
				Invariant:   3,
				Reference:   e.Reference,
				Description: fmt.Sprintf("line %d must have exactly one of debit or credit", i+1),
			})
		}

		// Invariant 4: amounts are never negative.
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   4,
				Reference:   e.Reference,
				Description: fmt.Sprintf("line %d has a negative amount", i+1),
			})
		}

		// Invariant 5: valid account references.
		if accounts != nil {
			if _, ok := accounts.Account(e.CompanyID, l.AccountCode); !ok {
				errs = append(errs, ValidationError{
					Invariant:   5,
					Reference:   e.Reference,
					Description: fmt.Sprintf("unknown account %s", l.AccountCode),
				})
			}
		}
	}

	return errs
}

// mustBalance panics when a generated entry violates an invariant. The
// generator only builds entries that satisfy them, so reaching the panic
// means the generator itself is broken.
func mustBalance(e model.JournalEntry, accounts AccountChecker, want decimal.Decimal) {
	verrs := ValidateEntry(e, accounts)
	debit, credit := e.Totals()
	if len(verrs) == 0 && debit.Equal(want) {
		return
	}
	detail := fmt.Sprintf("totals %s/%s, expected %s", debit.String(), credit.String(), want.String())
	if len(verrs) > 0 {
		detail = verrs[0].Error()
	}
	panic(&model.ImbalancedPostingError{Reference: e.Reference, Debit: debit, Credit: credit, Detail: detail})
}
