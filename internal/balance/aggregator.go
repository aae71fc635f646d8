// Package balance derives trial balances and account ledgers from posted
// journal lines.
package balance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Directory resolves a company's chart of accounts.
type Directory interface {
	Account(companyID, code string) (model.Account, bool)
	ByNature(companyID string, nature model.Nature) []model.Account
}

// Aggregator computes balances. It reads the store and never writes to it.
type Aggregator struct {
	repo     store.Repository
	accounts Directory
}

// NewAggregator creates an Aggregator.
func NewAggregator(repo store.Repository, accounts Directory) *Aggregator {
	return &Aggregator{repo: repo, accounts: accounts}
}

// account accumulates one account's figures for a period. Amounts are
// signed in the account's normal direction.
type account struct {
	acct    model.Account
	opening decimal.Decimal
	debits  decimal.Decimal
	credits decimal.Decimal
	active  bool // had a non-opening line in the period
	lines   []model.PostedLine
}

func (a *account) closing() decimal.Decimal {
	return a.opening.Add(signed(a.acct.Nature, a.debits, a.credits))
}

// signed returns debit-credit for debit-normal natures and credit-debit
// otherwise.
func signed(n model.Nature, debit, credit decimal.Decimal) decimal.Decimal {
	if n.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// periodState is every account's figures for one period.
type periodState struct {
	period   model.FiscalPeriod
	accounts map[string]*account
}

func (s *periodState) get(a model.Account) *account {
	row, ok := s.accounts[a.Code]
	if !ok {
		row = &account{acct: a, opening: decimal.Zero, debits: decimal.Zero, credits: decimal.Zero}
		s.accounts[a.Code] = row
	}
	return row
}

// compute walks the company's periods in order up to periodID, carrying each
// period's closing balances into the next one's opening.
func (g *Aggregator) compute(ctx context.Context, companyID, periodID string) (*periodState, error) {
	if _, err := g.repo.FiscalPeriod(ctx, companyID, periodID); err != nil {
		return nil, err
	}
	periods, err := g.repo.FiscalPeriods(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal periods: %w", err)
	}

	prior := map[string]decimal.Decimal{}
	for _, p := range periods {
		st, err := g.periodState(ctx, p, prior)
		if err != nil {
			return nil, err
		}
		if p.ID == periodID {
			return st, nil
		}
		prior = make(map[string]decimal.Decimal, len(st.accounts))
		for code, row := range st.accounts {
			prior[code] = row.closing()
		}
	}
	// FiscalPeriod found it, so FiscalPeriods must have listed it.
	return nil, &model.NotFoundError{Kind: "fiscal period", CompanyID: companyID, Key: periodID}
}

// periodState computes one period given the prior period's closing balances.
// An account opens at its prior closing when that is non-zero, otherwise at
// the sum of its opening-balance lines dated at the period start, otherwise
// at zero.
func (g *Aggregator) periodState(ctx context.Context, p model.FiscalPeriod, prior map[string]decimal.Decimal) (*periodState, error) {
	lines, err := g.repo.PostedLines(ctx, p.CompanyID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("loading posted lines for %s: %w", p.ID, err)
	}

	st := &periodState{period: p, accounts: make(map[string]*account)}
	ob := map[string]decimal.Decimal{}
	for _, l := range lines {
		acct, ok := g.accounts.Account(p.CompanyID, l.AccountCode)
		if !ok {
			return nil, &model.NotFoundError{
				Kind: "account", CompanyID: p.CompanyID, Key: l.AccountCode,
				Reason: fmt.Sprintf("referenced by journal entry %s", l.Reference),
			}
		}
		kind, _, err := id.ParseReference(l.Reference)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", p.ID, err)
		}
		row := st.get(acct)
		if kind == id.KindOpening {
			if model.SameDay(l.Date, p.Start) {
				ob[acct.Code] = ob[acct.Code].Add(signed(acct.Nature, l.Debit, l.Credit))
			}
			continue
		}
		row.debits = row.debits.Add(l.Debit)
		row.credits = row.credits.Add(l.Credit)
		row.active = true
		row.lines = append(row.lines, l)
	}

	for code, amount := range prior {
		if amount.IsZero() {
			continue
		}
		acct, ok := g.accounts.Account(p.CompanyID, code)
		if !ok {
			return nil, &model.NotFoundError{Kind: "account", CompanyID: p.CompanyID, Key: code}
		}
		st.get(acct).opening = amount
	}
	for code, amount := range ob {
		row := st.accounts[code]
		if row.opening.IsZero() {
			row.opening = amount
		}
	}
	return st, nil
}

// TrialBalance returns one row per account with a non-zero opening balance
// or any activity in the period, ordered by account code.
func (g *Aggregator) TrialBalance(ctx context.Context, companyID, periodID string) ([]model.TrialBalanceEntry, error) {
	st, err := g.compute(ctx, companyID, periodID)
	if err != nil {
		return nil, fmt.Errorf("trial balance for %s/%s: %w", companyID, periodID, err)
	}

	var out []model.TrialBalanceEntry
	for _, row := range st.accounts {
		if row.opening.IsZero() && !row.active {
			continue
		}
		out = append(out, model.TrialBalanceEntry{
			AccountCode:   row.acct.Code,
			AccountName:   row.acct.Name,
			Nature:        row.acct.Nature,
			Opening:       row.opening,
			PeriodDebits:  row.debits,
			PeriodCredits: row.credits,
			Closing:       row.closing(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

// AccountLedger is one account's activity for a period.
type AccountLedger struct {
	Account model.Account
	Period  model.FiscalPeriod
	Opening decimal.Decimal
	Lines   []model.LedgerLine
	Debits  decimal.Decimal
	Credits decimal.Decimal
	Closing decimal.Decimal
}

// AccountLedger returns the opening balance, the period's lines with a
// running balance, and the closing balance for one account.
func (g *Aggregator) AccountLedger(ctx context.Context, companyID, periodID, code string) (AccountLedger, error) {
	acct, ok := g.accounts.Account(companyID, code)
	if !ok {
		return AccountLedger{}, &model.NotFoundError{Kind: "account", CompanyID: companyID, Key: code}
	}
	st, err := g.compute(ctx, companyID, periodID)
	if err != nil {
		return AccountLedger{}, fmt.Errorf("ledger for %s in %s/%s: %w", code, companyID, periodID, err)
	}
	row := st.get(acct)

	posted := append([]model.PostedLine(nil), row.lines...)
	sort.SliceStable(posted, func(i, j int) bool {
		if !posted[i].Date.Equal(posted[j].Date) {
			return posted[i].Date.Before(posted[j].Date)
		}
		return posted[i].Reference < posted[j].Reference
	})

	out := AccountLedger{
		Account: acct,
		Period:  st.period,
		Opening: row.opening,
		Debits:  row.debits,
		Credits: row.credits,
		Closing: row.closing(),
	}
	running := row.opening
	for _, l := range posted {
		running = running.Add(signed(acct.Nature, l.Debit, l.Credit))
		out.Lines = append(out.Lines, model.LedgerLine{
			Date:        l.Date,
			Reference:   l.Reference,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Balance:     running,
		})
	}
	return out, nil
}

// LedgerLines returns the period's lines for one account with a running
// balance seeded from the opening balance. Opening-balance entries are not
// listed.
func (g *Aggregator) LedgerLines(ctx context.Context, companyID, periodID, code string) ([]model.LedgerLine, error) {
	l, err := g.AccountLedger(ctx, companyID, periodID, code)
	if err != nil {
		return nil, err
	}
	return l.Lines, nil
}

// BalancesByNature sums closing balances per account nature. Each total is
// signed in that nature's normal direction.
func (g *Aggregator) BalancesByNature(ctx context.Context, companyID, periodID string) (map[model.Nature]decimal.Decimal, error) {
	st, err := g.compute(ctx, companyID, periodID)
	if err != nil {
		return nil, fmt.Errorf("balances for %s/%s: %w", companyID, periodID, err)
	}
	out := make(map[model.Nature]decimal.Decimal, len(model.Natures))
	for _, n := range model.Natures {
		total := decimal.Zero
		for _, a := range g.accounts.ByNature(companyID, n) {
			if row, ok := st.accounts[a.Code]; ok {
				total = total.Add(row.closing())
			}
		}
		out[n] = total
	}
	return out, nil
}
