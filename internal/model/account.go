package model

import "fmt"

// Nature classifies accounts in the chart of accounts.
type Nature string

const (
	NatureAsset     Nature = "asset"
	NatureLiability Nature = "liability"
	NatureEquity    Nature = "equity"
	NatureRevenue   Nature = "revenue"
	NatureExpense   Nature = "expense"
)

// Natures lists every nature in balance-sheet then income-statement order.
var Natures = []Nature{NatureAsset, NatureLiability, NatureEquity, NatureRevenue, NatureExpense}

// ParseNature converts a stored nature string into a Nature.
func ParseNature(s string) (Nature, error) {
	n := Nature(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown account nature %q", s)
	}
	return n, nil
}

// Valid reports whether n is one of the five natures.
func (n Nature) Valid() bool {
	switch n {
	case NatureAsset, NatureLiability, NatureEquity, NatureRevenue, NatureExpense:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this nature grow with debits.
// Assets and expenses are debit-normal; the rest are credit-normal.
func (n Nature) DebitNormal() bool {
	return n == NatureAsset || n == NatureExpense
}

// Account is a chart-of-accounts entry scoped to a company.
type Account struct {
	CompanyID string
	Code      string
	Name      string
	Nature    Nature
	Active    bool
}
