package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("acme", "Acme LLC", "llc_single_member")
	cfg.BankAccounts = []BankAccount{
		{Name: "Operating", Type: "checking", LastFour: "1234", AccountCode: "1230", Default: true},
	}
	cfg.Fiscal.Periods = []PeriodConfig{{ID: "FY25-Q1", Start: "2025-01-01", End: "2025-03-31"}}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("acme", "My Company", "llc_single_member")

	assert.Equal(t, "acme", cfg.Company.ID)
	assert.Equal(t, "My Company", cfg.Company.Name)
	assert.Equal(t, "01-01", cfg.Fiscal.YearStart)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/ledger.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "3900", cfg.Posting.OpeningOffsetAccount)
	assert.Empty(t, cfg.BankAccounts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("acme", "Test Biz", "llc_single_member")
	cfg.BankAccounts = []BankAccount{{Name: "Checking", AccountCode: "1010"}}
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "id: acme")
	assert.Contains(t, contents, "entity_type: llc_single_member")
	assert.Contains(t, contents, "year_start: 01-01")
	assert.Contains(t, contents, "account_code: \"1010\"")
	assert.Contains(t, contents, "driver: sqlite")
	assert.NotContains(t, contents, "periods:")
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default("acme", "Acme", "llc_single_member")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	t.Setenv(EnvCompanyID, "globex")
	t.Setenv(EnvDBPath, "/tmp/other.db")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCreatedBy, "ci")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "globex", got.Company.ID)
	assert.Equal(t, "/tmp/other.db", got.Database.Path)
	assert.Equal(t, "debug", got.Logging.Level)
	assert.Equal(t, "ci", got.Posting.CreatedBy)
	assert.Equal(t, "Acme", got.Company.Name, "unset variables leave the file value")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEDGER_COMPANY_ID=from-dotenv\n"), 0o644))

	t.Setenv(EnvCompanyID, "")
	require.NoError(t, os.Unsetenv(EnvCompanyID))
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvCompanyID))

	assert.Error(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestLoadDotEnv_ExistingVariableWins(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEDGER_CREATED_BY=dotenv\n"), 0o644))

	t.Setenv(EnvCreatedBy, "shell")
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "shell", os.Getenv(EnvCreatedBy))
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := &Config{
		Fiscal:       FiscalConfig{YearStart: "13-40"},
		BankAccounts: []BankAccount{{Name: "A", Default: true}, {Name: "B", AccountCode: "1010", Default: true}},
		Database:     DatabaseConfig{Driver: "postgres"},
		Logging:      LoggingConfig{Level: "loud", Format: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"company.id",
		"year_start",
		"bank_accounts[0] (A) has no account_code",
		"2 accounts are marked default",
		"database.driver \"postgres\"",
		"logging.level",
		"logging.format",
		"posting.created_by",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := Default("acme", "Acme", "llc_single_member")
	cfg.Database.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "database.path")

	cfg.Database.Driver = DriverMemory
	assert.NoError(t, cfg.Validate())
}

func TestCashAccountCode(t *testing.T) {
	cfg := Default("acme", "Acme", "llc_single_member")
	_, ok := cfg.CashAccountCode()
	assert.False(t, ok)

	cfg.BankAccounts = []BankAccount{{Name: "Checking", AccountCode: "1010"}}
	code, ok := cfg.CashAccountCode()
	assert.True(t, ok)
	assert.Equal(t, "1010", code)

	cfg.BankAccounts = append(cfg.BankAccounts, BankAccount{Name: "Operating", AccountCode: "1230"})
	_, ok = cfg.CashAccountCode()
	assert.False(t, ok, "ambiguous without a default")

	cfg.BankAccounts[1].Default = true
	code, ok = cfg.CashAccountCode()
	assert.True(t, ok)
	assert.Equal(t, "1230", code)
}

func TestDBPath(t *testing.T) {
	cfg := Default("acme", "Acme", "llc_single_member")
	assert.Equal(t, filepath.Join("/repo", "data", "ledger.db"), cfg.DBPath("/repo"))

	cfg.Database.Path = "/var/lib/ledger.db"
	assert.Equal(t, "/var/lib/ledger.db", cfg.DBPath("/repo"))
}

func TestFiscalPeriods(t *testing.T) {
	cfg := Default("acme", "Acme", "llc_single_member")
	cfg.Fiscal.Periods = []PeriodConfig{
		{ID: "Q1", Start: "2025-01-01", End: "2025-03-31"},
		{ID: "Q2", Start: "2025-04-01", End: "2025-06-30"},
	}
	periods, err := cfg.FiscalPeriods()
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "acme", periods[0].CompanyID)
	assert.True(t, periods[1].Start.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))

	cfg.Fiscal.Periods[1].Start = "2025-03-15"
	_, err = cfg.FiscalPeriods()
	assert.ErrorContains(t, err, "overlap")

	cfg.Fiscal.Periods[1] = PeriodConfig{ID: "Q2", Start: "2025-06-30", End: "2025-04-01"}
	_, err = cfg.FiscalPeriods()
	assert.ErrorContains(t, err, "ends before it starts")

	cfg.Fiscal.Periods[1] = PeriodConfig{ID: "Q2", Start: "April", End: "2025-06-30"}
	_, err = cfg.FiscalPeriods()
	assert.Error(t, err)
}
