package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKey identifies a bank transaction.
type TransactionKey struct {
	CompanyID      string
	FiscalPeriodID string
	ID             string
}

func (k TransactionKey) String() string {
	return k.CompanyID + "/" + k.FiscalPeriodID + "/" + k.ID
}

// ClassificationMode describes how a transaction has been classified.
type ClassificationMode int

const (
	Unclassified ClassificationMode = iota
	SingleAccount
	ExplicitPair
)

// Classification is either a single account code (the other leg is the
// company's cash account) or an explicit debit/credit pair.
type Classification struct {
	AccountCode   string
	DebitAccount  string
	CreditAccount string
}

// Mode returns the classification mode. A complete pair wins over AccountCode.
func (c Classification) Mode() ClassificationMode {
	switch {
	case c.DebitAccount != "" && c.CreditAccount != "":
		return ExplicitPair
	case c.AccountCode != "":
		return SingleAccount
	default:
		return Unclassified
	}
}

// BankTransaction is one parsed bank statement line.
type BankTransaction struct {
	CompanyID      string
	FiscalPeriodID string
	ID             string
	Date           time.Time
	Description    string
	Debit          decimal.Decimal // money out, zero if credit
	Credit         decimal.Decimal // money in, zero if debit
	Balance        decimal.Decimal // running statement balance
	Classification Classification
}

// Key returns the transaction identity.
func (t BankTransaction) Key() TransactionKey {
	return TransactionKey{CompanyID: t.CompanyID, FiscalPeriodID: t.FiscalPeriodID, ID: t.ID}
}

// IsCredit reports whether money came into the bank account.
func (t BankTransaction) IsCredit() bool {
	return !t.Credit.IsZero()
}

// Amount returns whichever side is non-zero.
func (t BankTransaction) Amount() decimal.Decimal {
	if t.IsCredit() {
		return t.Credit
	}
	return t.Debit
}

// Classified reports whether the transaction carries any classification.
func (t BankTransaction) Classified() bool {
	return t.Classification.Mode() != Unclassified
}

// FiscalPeriod is a company-specific date range, both ends inclusive.
type FiscalPeriod struct {
	CompanyID string
	ID        string
	Start     time.Time
	End       time.Time
}

// Contains reports whether d falls within the period.
func (p FiscalPeriod) Contains(d time.Time) bool {
	day := truncateDay(d)
	return !day.Before(truncateDay(p.Start)) && !day.After(truncateDay(p.End))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return truncateDay(a).Equal(truncateDay(b))
}
