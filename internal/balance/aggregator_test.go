package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

type leg struct {
	code          string
	debit, credit string
}

func dr(code, amount string) leg { return leg{code: code, debit: amount} }
func cr(code, amount string) leg { return leg{code: code, credit: amount} }

type fixture struct {
	t   *testing.T
	ctx context.Context
	st  *store.Memory
	dir *accounts.Directory
	agg *Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := accounts.NewDirectory()
	dir.Add("acme",
		model.Account{Code: "1010", Name: "Checking", Nature: model.NatureAsset, Active: true},
		model.Account{Code: "1230", Name: "Operating Bank", Nature: model.NatureAsset, Active: true},
		model.Account{Code: "2010", Name: "Credit Card", Nature: model.NatureLiability, Active: true},
		model.Account{Code: "3900", Name: "Opening Balance Equity", Nature: model.NatureEquity, Active: true},
		model.Account{Code: "4010", Name: "Sales", Nature: model.NatureRevenue, Active: true},
		model.Account{Code: "5020", Name: "Software", Nature: model.NatureExpense, Active: true},
		model.Account{Code: "5090", Name: "Legacy Travel", Nature: model.NatureExpense, Active: false},
	)
	st := store.NewMemory()
	for _, m := range []time.Month{time.January, time.February, time.March} {
		require.NoError(t, st.SaveFiscalPeriod(ctx, model.FiscalPeriod{
			CompanyID: "acme",
			ID:        time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			Start:     day(m, 1),
			End:       day(m+1, 1).AddDate(0, 0, -1),
		}))
	}
	return &fixture{t: t, ctx: ctx, st: st, dir: dir, agg: NewAggregator(st, dir)}
}

func (f *fixture) post(periodID, ref string, date time.Time, legs ...leg) {
	f.t.Helper()
	e := model.JournalEntry{
		ID:             ref + "-entry",
		CompanyID:      "acme",
		FiscalPeriodID: periodID,
		Date:           date,
		Description:    ref,
		Reference:      ref,
	}
	for i, l := range legs {
		line := model.JournalLine{ID: ref + "-" + string(rune('a'+i)), EntryID: e.ID, AccountCode: l.code, Debit: decimal.Zero, Credit: decimal.Zero, Description: ref}
		if l.debit != "" {
			line.Debit = dec(l.debit)
		}
		if l.credit != "" {
			line.Credit = dec(l.credit)
		}
		e.Lines = append(e.Lines, line)
	}
	require.NoError(f.t, f.st.InsertJournalEntry(f.ctx, e))
}

// seed builds three months of activity:
//
//	Jan: opening 1010/3900 1000, software 100, sales 500
//	Feb: software 50
//	Mar: an opening entry that only matters for 1230
func (f *fixture) seed() {
	f.post("2025-01", "OB-2025-01", day(1, 1), dr("1010", "1000.00"), cr("3900", "1000.00"))
	f.post("2025-01", "TXN-a", day(1, 5), dr("5020", "100.00"), cr("1010", "100.00"))
	f.post("2025-01", "TXN-b", day(1, 10), dr("1010", "500.00"), cr("4010", "500.00"))
	f.post("2025-02", "TXN-c", day(2, 3), dr("5020", "50.00"), cr("1010", "50.00"))
	f.post("2025-03", "OB-2025-03", day(3, 1), dr("1010", "9999.00"), dr("1230", "200.00"), cr("3900", "10199.00"))
}

func closings(rows []model.TrialBalanceEntry) map[string]string {
	out := map[string]string{}
	for _, r := range rows {
		out[r.AccountCode] = r.Closing.StringFixed(2)
	}
	return out
}

func TestTrialBalance_FirstPeriodUsesOpeningEntry(t *testing.T) {
	f := newFixture(t)
	f.seed()

	rows, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.NoError(t, err)

	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.AccountCode
	}
	assert.Equal(t, []string{"1010", "3900", "4010", "5020"}, codes, "sorted; untouched accounts omitted")

	cash := rows[0]
	assert.Equal(t, "Checking", cash.AccountName)
	assert.Equal(t, model.NatureAsset, cash.Nature)
	assert.Equal(t, "1000.00", cash.Opening.StringFixed(2))
	assert.Equal(t, "500.00", cash.PeriodDebits.StringFixed(2), "opening entry is not movement")
	assert.Equal(t, "100.00", cash.PeriodCredits.StringFixed(2))
	assert.Equal(t, "1400.00", cash.Closing.StringFixed(2))

	equity := rows[1]
	assert.Equal(t, "1000.00", equity.Opening.StringFixed(2))
	assert.True(t, equity.PeriodCredits.IsZero())
	assert.Equal(t, "1000.00", equity.Closing.StringFixed(2))
}

func TestTrialBalance_CarriesForward(t *testing.T) {
	f := newFixture(t)
	f.seed()

	feb, err := f.agg.TrialBalance(f.ctx, "acme", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"1010": "1350.00",
		"3900": "1000.00",
		"4010": "500.00",
		"5020": "150.00",
	}, closings(feb))

	mar, err := f.agg.TrialBalance(f.ctx, "acme", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"1010": "1350.00", // prior closing wins over the opening entry
		"1230": "200.00",  // no prior closing, falls back to the opening entry
		"3900": "1000.00",
		"4010": "500.00",
		"5020": "150.00",
	}, closings(mar))

	for _, r := range mar {
		assert.True(t, r.Opening.Equal(r.Closing), "%s has no March movement", r.AccountCode)
	}
}

func TestTrialBalance_EmptyPeriodDefaultsToZero(t *testing.T) {
	f := newFixture(t)

	rows, err := f.agg.TrialBalance(f.ctx, "acme", "2025-02")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTrialBalance_OpeningEntryNotAtPeriodStartIgnored(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "OB-2025-01", day(1, 15), dr("1010", "10.00"), cr("3900", "10.00"))

	rows, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTrialBalance_SignConventionFollowsNature(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "TXN-1", day(1, 3), dr("5020", "300.00"), cr("2010", "300.00"))
	f.post("2025-01", "TXN-2", day(1, 4), dr("1010", "80.00"), cr("4010", "80.00"))
	f.post("2025-01", "TXN-3", day(1, 5), dr("2010", "100.00"), cr("1010", "100.00"))

	rows, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"1010": "-20.00", // asset: debits - credits
		"2010": "200.00", // liability: credits - debits
		"4010": "80.00",
		"5020": "300.00",
	}, closings(rows))
}

func TestTrialBalance_UnknownAccountInPostedLine(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "TXN-1", day(1, 3), dr("9999", "1.00"), cr("1010", "1.00"))

	_, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Contains(t, err.Error(), "9999")
}

func TestTrialBalance_UnknownPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.TrialBalance(f.ctx, "acme", "2030-01")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestTrialBalance_InactiveAccountWithHistoryStillReported(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "TXN-1", day(1, 3), dr("5090", "40.00"), cr("1010", "40.00"))

	rows, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "40.00", closings(rows)["5090"])
}

func TestLedgerLines_RunningBalance(t *testing.T) {
	f := newFixture(t)
	f.seed()

	lines, err := f.agg.LedgerLines(f.ctx, "acme", "2025-01", "1010")
	require.NoError(t, err)
	require.Len(t, lines, 2, "opening entry is not listed")

	assert.Equal(t, "TXN-a", lines[0].Reference)
	assert.Equal(t, "100.00", lines[0].Credit.StringFixed(2))
	assert.Equal(t, "900.00", lines[0].Balance.StringFixed(2))
	assert.Equal(t, "TXN-b", lines[1].Reference)
	assert.Equal(t, "1400.00", lines[1].Balance.StringFixed(2))
}

func TestLedgerLines_OrderedByDateThenReference(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "TXN-z", day(1, 9), dr("5020", "1.00"), cr("1010", "1.00"))
	f.post("2025-01", "TXN-m", day(1, 9), dr("5020", "2.00"), cr("1010", "2.00"))
	f.post("2025-01", "TXN-a", day(1, 10), dr("5020", "3.00"), cr("1010", "3.00"))

	lines, err := f.agg.LedgerLines(f.ctx, "acme", "2025-01", "5020")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "TXN-m", lines[0].Reference)
	assert.Equal(t, "TXN-z", lines[1].Reference)
	assert.Equal(t, "TXN-a", lines[2].Reference)
	assert.Equal(t, "6.00", lines[2].Balance.StringFixed(2))
}

func TestLedgerLines_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.LedgerLines(f.ctx, "acme", "2025-01", "9999")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestAccountLedger(t *testing.T) {
	f := newFixture(t)
	f.seed()

	l, err := f.agg.AccountLedger(f.ctx, "acme", "2025-02", "1010")
	require.NoError(t, err)
	assert.Equal(t, "2025-02", l.Period.ID)
	assert.Equal(t, "Checking", l.Account.Name)
	assert.Equal(t, "1400.00", l.Opening.StringFixed(2))
	assert.True(t, l.Debits.IsZero())
	assert.Equal(t, "50.00", l.Credits.StringFixed(2))
	assert.Equal(t, "1350.00", l.Closing.StringFixed(2))
	require.Len(t, l.Lines, 1)
	assert.True(t, l.Lines[0].Balance.Equal(l.Closing))
}

func TestAccountLedger_NoActivity(t *testing.T) {
	f := newFixture(t)
	f.seed()

	l, err := f.agg.AccountLedger(f.ctx, "acme", "2025-01", "2010")
	require.NoError(t, err)
	assert.Empty(t, l.Lines)
	assert.True(t, l.Opening.IsZero())
	assert.True(t, l.Closing.IsZero())
}

func TestBalancesByNature(t *testing.T) {
	f := newFixture(t)
	f.seed()

	got, err := f.agg.BalancesByNature(f.ctx, "acme", "2025-01")
	require.NoError(t, err)
	require.Len(t, got, len(model.Natures))
	assert.Equal(t, "1400.00", got[model.NatureAsset].StringFixed(2))
	assert.True(t, got[model.NatureLiability].IsZero())
	assert.Equal(t, "1000.00", got[model.NatureEquity].StringFixed(2))
	assert.Equal(t, "500.00", got[model.NatureRevenue].StringFixed(2))
	assert.Equal(t, "100.00", got[model.NatureExpense].StringFixed(2))

	// assets = liabilities + equity + revenue - expenses
	rhs := got[model.NatureLiability].Add(got[model.NatureEquity]).Add(got[model.NatureRevenue]).Sub(got[model.NatureExpense])
	assert.True(t, got[model.NatureAsset].Equal(rhs))
}

func TestBalancesByNature_InactiveAccountWithHistory(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "TXN-old", day(time.January, 8), dr("5090", "40.00"), cr("1010", "40.00"))

	got, err := f.agg.BalancesByNature(f.ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "40.00", got[model.NatureExpense].StringFixed(2))
	assert.Equal(t, "-40.00", got[model.NatureAsset].StringFixed(2))
}

func TestTrialBalance_MalformedReference(t *testing.T) {
	f := newFixture(t)
	f.post("2025-01", "MANUAL-1", day(time.January, 4), dr("5020", "10.00"), cr("1010", "10.00"))

	_, err := f.agg.TrialBalance(f.ctx, "acme", "2025-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MANUAL-1")

	_, err = f.agg.BalancesByNature(f.ctx, "acme", "2025-01")
	assert.Error(t, err)
}

func TestSyncedSQLiteMatchesMemory(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(t.TempDir() + "/ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := newFixture(t)
	f.seed()

	periods, err := f.st.FiscalPeriods(ctx, "acme")
	require.NoError(t, err)
	for _, p := range periods {
		require.NoError(t, db.SaveFiscalPeriod(ctx, p))
	}
	entries, err := f.st.JournalEntries(ctx, "acme")
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, db.InsertJournalEntry(ctx, e))
	}

	want, err := f.agg.TrialBalance(ctx, "acme", "2025-03")
	require.NoError(t, err)
	got, err := NewAggregator(db, f.dir).TrialBalance(ctx, "acme", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, closings(want), closings(got))
}
