package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cleared-dev/ledger/internal/model"
)

// Memory is an in-memory Store. Values are copied on the way in and out.
// WithinTx serialises units of work and restores a snapshot on error.
type Memory struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   memState
}

type memState struct {
	periods []model.FiscalPeriod
	txns    []model.BankTransaction
	entries []model.JournalEntry
}

func (s memState) clone() memState {
	c := memState{
		periods: append([]model.FiscalPeriod(nil), s.periods...),
		txns:    append([]model.BankTransaction(nil), s.txns...),
		entries: make([]model.JournalEntry, len(s.entries)),
	}
	for i, e := range s.entries {
		c.entries[i] = copyEntry(e)
	}
	return c
}

func copyEntry(e model.JournalEntry) model.JournalEntry {
	e.Lines = append([]model.JournalLine(nil), e.Lines...)
	return e
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// WithinTx implements Store.
func (m *Memory) WithinTx(ctx context.Context, fn func(Repository) error) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.st.clone()
	m.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *Memory) restore(s memState) {
	m.mu.Lock()
	m.st = s
	m.mu.Unlock()
}

// SaveFiscalPeriod inserts or replaces a period.
func (m *Memory) SaveFiscalPeriod(_ context.Context, p model.FiscalPeriod) error {
	if p.CompanyID == "" || p.ID == "" {
		return fmt.Errorf("fiscal period needs company and id")
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("fiscal period %s ends before it starts", p.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.st.periods {
		if existing.CompanyID == p.CompanyID && existing.ID == p.ID {
			m.st.periods[i] = p
			return nil
		}
	}
	m.st.periods = append(m.st.periods, p)
	return nil
}

// FiscalPeriod returns a period or a NotFoundError.
func (m *Memory) FiscalPeriod(_ context.Context, companyID, periodID string) (model.FiscalPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.st.periods {
		if p.CompanyID == companyID && p.ID == periodID {
			return p, nil
		}
	}
	return model.FiscalPeriod{}, periodNotFound(companyID, periodID)
}

// FiscalPeriods returns a company's periods ordered by start date.
func (m *Memory) FiscalPeriods(_ context.Context, companyID string) ([]model.FiscalPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.FiscalPeriod
	for _, p := range m.st.periods {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// SaveTransactions implements Repository.
func (m *Memory) SaveTransactions(_ context.Context, txns ...model.BankTransaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, t := range txns {
		if t.CompanyID == "" || t.FiscalPeriodID == "" || t.ID == "" {
			return inserted, fmt.Errorf("transaction %q needs company, fiscal period and id", t.ID)
		}
		if m.indexOf(t.Key()) >= 0 {
			continue
		}
		m.st.txns = append(m.st.txns, t)
		inserted++
	}
	return inserted, nil
}

func (m *Memory) indexOf(key model.TransactionKey) int {
	for i, t := range m.st.txns {
		if t.Key() == key {
			return i
		}
	}
	return -1
}

// Transaction returns one transaction or a NotFoundError.
func (m *Memory) Transaction(_ context.Context, key model.TransactionKey) (model.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(key)
	if i < 0 {
		return model.BankTransaction{}, transactionNotFound(key)
	}
	return m.st.txns[i], nil
}

// Transactions implements Repository.
func (m *Memory) Transactions(_ context.Context, f TransactionFilter) ([]model.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.BankTransaction
	for _, t := range m.st.txns {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SetClassification implements Repository.
func (m *Memory) SetClassification(_ context.Context, key model.TransactionKey, c model.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(key)
	if i < 0 {
		return transactionNotFound(key)
	}
	m.st.txns[i].Classification = c
	return nil
}

// InsertJournalEntry implements Repository.
func (m *Memory) InsertJournalEntry(_ context.Context, e model.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.entries {
		if existing.CompanyID == e.CompanyID && existing.FiscalPeriodID == e.FiscalPeriodID && existing.Reference == e.Reference {
			return fmt.Errorf("%s in %s/%s: %w", e.Reference, e.CompanyID, e.FiscalPeriodID, ErrDuplicateReference)
		}
	}
	m.st.entries = append(m.st.entries, copyEntry(e))
	return nil
}

// HasJournalEntry implements Repository.
func (m *Memory) HasJournalEntry(_ context.Context, companyID, periodID, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.st.entries {
		if e.CompanyID == companyID && e.FiscalPeriodID == periodID && e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

// JournalEntries returns a company's entries ordered by date then insertion.
func (m *Memory) JournalEntries(_ context.Context, companyID string) ([]model.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.JournalEntry
	for _, e := range m.st.entries {
		if e.CompanyID == companyID {
			out = append(out, copyEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// DeleteJournalEntry implements Repository.
func (m *Memory) DeleteJournalEntry(_ context.Context, companyID, periodID, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.st.entries {
		if e.CompanyID == companyID && e.FiscalPeriodID == periodID && e.Reference == reference {
			m.st.entries = append(m.st.entries[:i], m.st.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteJournalEntries implements Repository.
func (m *Memory) DeleteJournalEntries(_ context.Context, companyID, refPrefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.st.entries[:0:0]
	deleted := 0
	for _, e := range m.st.entries {
		if e.CompanyID == companyID && strings.HasPrefix(e.Reference, refPrefix) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.st.entries = kept
	return deleted, nil
}

// PostedLines returns the lines of every entry in a period, ordered by entry
// date then insertion order.
func (m *Memory) PostedLines(ctx context.Context, companyID, periodID string) ([]model.PostedLine, error) {
	entries, err := m.JournalEntries(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var out []model.PostedLine
	for _, e := range entries {
		if e.FiscalPeriodID != periodID {
			continue
		}
		for _, l := range e.Lines {
			out = append(out, model.PostedLine{
				JournalLine:    l,
				FiscalPeriodID: e.FiscalPeriodID,
				Date:           e.Date,
				Reference:      e.Reference,
			})
		}
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
