package accounts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cleared-dev/ledger/internal/model"
)

// chartFile is the chart location relative to a repo root.
const chartFile = "accounts/chart-of-accounts.csv"

// Directory provides read-only lookup over company charts of accounts.
type Directory struct {
	mu        sync.RWMutex
	companies map[string]*chart
}

type chart struct {
	accounts []model.Account
	byCode   map[string]int
	cashCode string
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{companies: make(map[string]*chart)}
}

// Add registers accounts for a company, replacing any with the same code.
func (d *Directory) Add(companyID string, accts ...model.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.companies[companyID]
	if c == nil {
		c = &chart{byCode: make(map[string]int)}
		d.companies[companyID] = c
	}
	for _, a := range accts {
		a.CompanyID = companyID
		if i, ok := c.byCode[a.Code]; ok {
			c.accounts[i] = a
			continue
		}
		c.byCode[a.Code] = len(c.accounts)
		c.accounts = append(c.accounts, a)
	}
}

// SetDefaultCashAccount designates the bank/cash account used as the other
// leg of single-account postings.
func (d *Directory) SetDefaultCashAccount(companyID, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.companies[companyID]
	if c == nil {
		return &model.NotFoundError{Kind: "account", CompanyID: companyID, Key: code, Reason: "company has no chart of accounts"}
	}
	if _, ok := c.byCode[code]; !ok {
		return &model.NotFoundError{Kind: "account", CompanyID: companyID, Key: code}
	}
	c.cashCode = code
	return nil
}

// Account returns an account by code.
func (d *Directory) Account(companyID, code string) (model.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c := d.companies[companyID]
	if c == nil {
		return model.Account{}, false
	}
	i, ok := c.byCode[code]
	if !ok {
		return model.Account{}, false
	}
	return c.accounts[i], true
}

// DefaultCashAccount returns the designated cash account if it is active.
func (d *Directory) DefaultCashAccount(companyID string) (model.Account, bool) {
	d.mu.RLock()
	c := d.companies[companyID]
	var code string
	if c != nil {
		code = c.cashCode
	}
	d.mu.RUnlock()

	if code == "" {
		return model.Account{}, false
	}
	acct, ok := d.Account(companyID, code)
	if !ok || !acct.Active {
		return model.Account{}, false
	}
	return acct, true
}

// All returns a copy of a company's accounts in definition order.
func (d *Directory) All(companyID string) []model.Account {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c := d.companies[companyID]
	if c == nil {
		return nil
	}
	out := make([]model.Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// ByNature returns a company's accounts of the given nature.
func (d *Directory) ByNature(companyID string, nature model.Nature) []model.Account {
	var result []model.Account
	for _, a := range d.All(companyID) {
		if a.Nature == nature {
			result = append(result, a)
		}
	}
	return result
}

// Load reads accounts/chart-of-accounts.csv from a repo root into a new
// Directory under companyID.
func Load(repoRoot, companyID string) (*Directory, error) {
	path := filepath.Join(repoRoot, chartFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}

	d := NewDirectory()
	d.Add(companyID, accts...)
	return d, nil
}

// Save writes a company's chart to accounts/chart-of-accounts.csv.
func (d *Directory) Save(repoRoot, companyID string) error {
	dir := filepath.Join(repoRoot, filepath.Dir(chartFile))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(repoRoot, chartFile))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, d.All(companyID)); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
