package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// adapters returns a fresh instance of every Store implementation.
func adapters(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func txn(id string, day int, desc, debit, credit string) model.BankTransaction {
	t := model.BankTransaction{
		CompanyID:      "acme",
		FiscalPeriodID: "2025-01",
		ID:             id,
		Date:           date(2025, 1, day),
		Description:    desc,
		Debit:          decimal.Zero,
		Credit:         decimal.Zero,
		Balance:        dec("100.00"),
	}
	if debit != "" {
		t.Debit = dec(debit)
	}
	if credit != "" {
		t.Credit = dec(credit)
	}
	return t
}

func entry(ref, periodID string, day int, debitAcct, creditAcct, amount string) model.JournalEntry {
	return model.JournalEntry{
		ID:             ref + "-" + periodID,
		CompanyID:      "acme",
		FiscalPeriodID: periodID,
		Date:           date(2025, 1, day),
		Description:    ref,
		Reference:      ref,
		CreatedBy:      "test",
		CreatedAt:      time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
		Lines: []model.JournalLine{
			{ID: ref + "-" + periodID + "-d", EntryID: ref + "-" + periodID, AccountCode: debitAcct, Debit: dec(amount), Credit: decimal.Zero},
			{ID: ref + "-" + periodID + "-c", EntryID: ref + "-" + periodID, AccountCode: creditAcct, Debit: decimal.Zero, Credit: dec(amount)},
		},
	}
}

func TestFiscalPeriods(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveFiscalPeriod(ctx, model.FiscalPeriod{CompanyID: "acme", ID: "2025-02", Start: date(2025, 2, 1), End: date(2025, 2, 28)}))
			require.NoError(t, s.SaveFiscalPeriod(ctx, model.FiscalPeriod{CompanyID: "acme", ID: "2025-01", Start: date(2025, 1, 1), End: date(2025, 1, 31)}))
			require.NoError(t, s.SaveFiscalPeriod(ctx, model.FiscalPeriod{CompanyID: "globex", ID: "2025-01", Start: date(2025, 1, 1), End: date(2025, 1, 31)}))

			periods, err := s.FiscalPeriods(ctx, "acme")
			require.NoError(t, err)
			require.Len(t, periods, 2)
			assert.Equal(t, "2025-01", periods[0].ID, "ordered by start date")
			assert.Equal(t, "2025-02", periods[1].ID)

			p, err := s.FiscalPeriod(ctx, "acme", "2025-02")
			require.NoError(t, err)
			assert.True(t, p.End.Equal(date(2025, 2, 28)))

			_, err = s.FiscalPeriod(ctx, "acme", "2030-01")
			assert.True(t, errors.Is(err, model.ErrNotFound))

			err = s.SaveFiscalPeriod(ctx, model.FiscalPeriod{CompanyID: "acme", ID: "bad", Start: date(2025, 3, 1), End: date(2025, 2, 1)})
			assert.Error(t, err)
		})
	}
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.SaveTransactions(ctx,
				txn("t2", 9, "STAPLES", "23.17", ""),
				txn("t1", 3, "GITHUB", "4.00", ""),
				txn("t3", 9, "ACME INVOICE", "", "3500.00"),
			)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			n, err = s.SaveTransactions(ctx, txn("t1", 3, "GITHUB changed", "4.00", ""))
			require.NoError(t, err)
			assert.Equal(t, 0, n, "existing keys are not overwritten")

			all, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme"})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"t1", "t2", "t3"}, []string{all[0].ID, all[1].ID, all[2].ID})
			assert.Equal(t, "GITHUB", all[0].Description)
			assert.True(t, all[2].Credit.Equal(dec("3500")))
			assert.True(t, all[2].Debit.IsZero())

			key := all[1].Key()
			require.NoError(t, s.SetClassification(ctx, key, model.Classification{AccountCode: "5030"}))

			got, err := s.Transaction(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "5030", got.Classification.AccountCode)

			classified, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme", Classification: OnlyClassified})
			require.NoError(t, err)
			require.Len(t, classified, 1)
			assert.Equal(t, "t2", classified[0].ID)

			unclassified, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme", FiscalPeriodID: "2025-01", Classification: OnlyUnclassified})
			require.NoError(t, err)
			assert.Len(t, unclassified, 2)

			other, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme", FiscalPeriodID: "2025-02"})
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestHalfPairCountsAsUnclassified(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.SaveTransactions(ctx, txn("t1", 3, "GITHUB", "4.00", ""))
			require.NoError(t, err)
			key := model.TransactionKey{CompanyID: "acme", FiscalPeriodID: "2025-01", ID: "t1"}
			require.NoError(t, s.SetClassification(ctx, key, model.Classification{DebitAccount: "5020"}))

			unclassified, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme", Classification: OnlyUnclassified})
			require.NoError(t, err)
			assert.Len(t, unclassified, 1)
		})
	}
}

func TestSetClassificationUnknown(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SetClassification(ctx, model.TransactionKey{CompanyID: "acme", FiscalPeriodID: "2025-01", ID: "nope"}, model.Classification{AccountCode: "5020"})
			assert.True(t, errors.Is(err, model.ErrNotFound))

			_, err = s.Transaction(ctx, model.TransactionKey{CompanyID: "acme", FiscalPeriodID: "2025-01", ID: "nope"})
			assert.True(t, errors.Is(err, model.ErrNotFound))
		})
	}
}

func TestJournalEntries(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.InsertJournalEntry(ctx, entry("TXN-t2", "2025-01", 9, "5030", "1010", "23.17")))
			require.NoError(t, s.InsertJournalEntry(ctx, entry("TXN-t1", "2025-01", 3, "5020", "1010", "4.00")))
			require.NoError(t, s.InsertJournalEntry(ctx, entry("OB-2025-01", "2025-01", 1, "1010", "3900", "100.00")))

			err := s.InsertJournalEntry(ctx, entry("TXN-t1", "2025-01", 3, "5020", "1010", "4.00"))
			assert.True(t, errors.Is(err, ErrDuplicateReference))

			has, err := s.HasJournalEntry(ctx, "acme", "2025-01", "TXN-t1")
			require.NoError(t, err)
			assert.True(t, has)
			has, err = s.HasJournalEntry(ctx, "acme", "2025-02", "TXN-t1")
			require.NoError(t, err)
			assert.False(t, has, "references are scoped to the period")

			entries, err := s.JournalEntries(ctx, "acme")
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, "OB-2025-01", entries[0].Reference)
			assert.Equal(t, "TXN-t1", entries[1].Reference)
			require.Len(t, entries[1].Lines, 2)
			debit, credit := entries[1].Totals()
			assert.True(t, debit.Equal(credit))
			assert.True(t, entries[1].CreatedAt.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)))

			lines, err := s.PostedLines(ctx, "acme", "2025-01")
			require.NoError(t, err)
			require.Len(t, lines, 6)
			assert.Equal(t, "OB-2025-01", lines[0].Reference)
			assert.Equal(t, "1010", lines[0].AccountCode)
			assert.True(t, lines[0].Debit.Equal(dec("100")))

			deleted, err := s.DeleteJournalEntries(ctx, "acme", "TXN-")
			require.NoError(t, err)
			assert.Equal(t, 2, deleted)

			lines, err = s.PostedLines(ctx, "acme", "2025-01")
			require.NoError(t, err)
			assert.Len(t, lines, 2, "lines are deleted with their entry")

			ok, err := s.DeleteJournalEntry(ctx, "acme", "2025-01", "OB-2025-01")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = s.DeleteJournalEntry(ctx, "acme", "2025-01", "OB-2025-01")
			require.NoError(t, err)
			assert.False(t, ok)

			entries, err = s.JournalEntries(ctx, "acme")
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestDeleteEntriesKeepsClassification(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			tx := txn("t1", 3, "GITHUB", "4.00", "")
			tx.Classification = model.Classification{AccountCode: "5020"}
			_, err := s.SaveTransactions(ctx, tx)
			require.NoError(t, err)
			require.NoError(t, s.InsertJournalEntry(ctx, entry("TXN-t1", "2025-01", 3, "5020", "1010", "4.00")))

			_, err = s.DeleteJournalEntries(ctx, "acme", "TXN-")
			require.NoError(t, err)

			got, err := s.Transaction(ctx, tx.Key())
			require.NoError(t, err)
			assert.Equal(t, "5020", got.Classification.AccountCode)
		})
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithinTx(ctx, func(r Repository) error {
				if _, err := r.SaveTransactions(ctx, txn("t1", 3, "GITHUB", "4.00", "")); err != nil {
					return err
				}
				if err := r.InsertJournalEntry(ctx, entry("TXN-t1", "2025-01", 3, "5020", "1010", "4.00")); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			txns, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme"})
			require.NoError(t, err)
			assert.Empty(t, txns)
			entries, err := s.JournalEntries(ctx, "acme")
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithinTx(ctx, func(r Repository) error {
				_, err := r.SaveTransactions(ctx, txn("t1", 3, "GITHUB", "4.00", ""))
				return err
			})
			require.NoError(t, err)

			txns, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme"})
			require.NoError(t, err)
			assert.Len(t, txns, 1)
		})
	}
}

func TestMemoryWithinTxRestoresOnPanic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assert.Panics(t, func() {
		_ = m.WithinTx(ctx, func(r Repository) error {
			_, _ = r.SaveTransactions(ctx, txn("t1", 3, "GITHUB", "4.00", ""))
			panic("defect")
		})
	})
	txns, err := m.Transactions(ctx, TransactionFilter{CompanyID: "acme"})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertJournalEntry(ctx, entry("TXN-t1", "2025-01", 3, "5020", "1010", "4.00")))

	entries, err := m.JournalEntries(ctx, "acme")
	require.NoError(t, err)
	entries[0].Lines[0].AccountCode = "9999"

	again, err := m.JournalEntries(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "5020", again[0].Lines[0].AccountCode)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.SaveTransactions(ctx, txn("t1", 3, "GITHUB", "4.00", ""))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	txns, err := s.Transactions(ctx, TransactionFilter{CompanyID: "acme"})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Debit.Equal(dec("4.00")))
}
