package accounts

import (
	"fmt"

	"github.com/cleared-dev/ledger/internal/model"
)

// DefaultCashAccount is the bank account code in every default chart.
const DefaultCashAccount = "1010"

// OpeningBalanceEquity is the offset account for opening-balance entries.
const OpeningBalanceEquity = "3900"

// EntityLLCSingleMember is the entity type of a single-member LLC.
const EntityLLCSingleMember = "llc_single_member"

var charts = map[string]func() []model.Account{
	EntityLLCSingleMember: llcSingleMemberChart,
}

// DefaultChart returns the default chart of accounts for an entity type.
// Natures are assigned here, once, and stored on each account.
func DefaultChart(entityType string) ([]model.Account, error) {
	chart, ok := charts[entityType]
	if !ok {
		return nil, fmt.Errorf("no default chart for entity type %q (known: %s)", entityType, EntityLLCSingleMember)
	}
	return chart(), nil
}

func llcSingleMemberChart() []model.Account {
	return []model.Account{
		{Code: "1010", Name: "Business Checking", Nature: model.NatureAsset, Active: true},
		{Code: "1020", Name: "Business Savings", Nature: model.NatureAsset, Active: true},
		{Code: "1200", Name: "Accounts Receivable", Nature: model.NatureAsset, Active: true},
		{Code: "2010", Name: "Credit Card", Nature: model.NatureLiability, Active: true},
		{Code: "2100", Name: "Sales Tax Payable", Nature: model.NatureLiability, Active: true},
		{Code: "3010", Name: "Owner's Equity", Nature: model.NatureEquity, Active: true},
		{Code: "3020", Name: "Owner's Draw", Nature: model.NatureEquity, Active: true},
		{Code: OpeningBalanceEquity, Name: "Opening Balance Equity", Nature: model.NatureEquity, Active: true},
		{Code: "4010", Name: "Service Revenue", Nature: model.NatureRevenue, Active: true},
		{Code: "4020", Name: "Product Revenue", Nature: model.NatureRevenue, Active: true},
		{Code: "4900", Name: "Other Income", Nature: model.NatureRevenue, Active: true},
		{Code: "5010", Name: "Advertising & Marketing", Nature: model.NatureExpense, Active: true},
		{Code: "5020", Name: "Software & SaaS", Nature: model.NatureExpense, Active: true},
		{Code: "5030", Name: "Office Supplies", Nature: model.NatureExpense, Active: true},
		{Code: "5040", Name: "Professional Services", Nature: model.NatureExpense, Active: true},
		{Code: "5050", Name: "Shipping & Postage", Nature: model.NatureExpense, Active: true},
		{Code: "5060", Name: "Bank Fees", Nature: model.NatureExpense, Active: true},
	}
}
