package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a balanced double-entry record. It owns its lines.
type JournalEntry struct {
	ID                  string
	CompanyID           string
	FiscalPeriodID      string
	Date                time.Time
	Description         string
	Reference           string // TXN-<id> or OB-<period>
	SourceTransactionID string // empty for opening-balance entries
	CreatedBy           string
	CreatedAt           time.Time
	Lines               []JournalLine
}

// Totals returns the debit and credit sums over all lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// JournalLine is one side of a journal entry.
type JournalLine struct {
	ID                  string
	EntryID             string
	AccountCode         string
	Debit               decimal.Decimal // zero if credit side
	Credit              decimal.Decimal // zero if debit side
	Description         string
	SourceTransactionID string
}

// PostedLine is a journal line joined with the header fields the ledger needs.
type PostedLine struct {
	JournalLine
	FiscalPeriodID string
	Date           time.Time
	Reference      string
}

// TrialBalanceEntry is the derived per-account view of a fiscal period.
type TrialBalanceEntry struct {
	AccountCode   string
	AccountName   string
	Nature        Nature
	Opening       decimal.Decimal
	PeriodDebits  decimal.Decimal
	PeriodCredits decimal.Decimal
	Closing       decimal.Decimal
}

// LedgerLine is one row of an account's general-ledger view.
type LedgerLine struct {
	Date        time.Time
	Reference   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal // running balance after this line
}
