// Package config loads ledger.yaml and overlays it with environment
// variables, optionally read from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledger/internal/logger"
	"github.com/cleared-dev/ledger/internal/model"
)

// FileName is the config file at the repository root.
const FileName = "ledger.yaml"

// Environment variables that override the file.
const (
	EnvCompanyID = "LEDGER_COMPANY_ID"
	EnvDBPath    = "LEDGER_DB_PATH"
	EnvLogLevel  = "LEDGER_LOG_LEVEL"
	EnvCreatedBy = "LEDGER_CREATED_BY"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

const dateFormat = "2006-01-02"

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Company      CompanyConfig  `yaml:"company"`
	Fiscal       FiscalConfig   `yaml:"fiscal"`
	BankAccounts []BankAccount  `yaml:"bank_accounts,omitempty"`
	Database     DatabaseConfig `yaml:"database"`
	Logging      LoggingConfig  `yaml:"logging"`
	Posting      PostingConfig  `yaml:"posting"`
}

// CompanyConfig identifies the company whose books this repository holds.
type CompanyConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// FiscalConfig defines the fiscal year and, optionally, explicit periods.
// Without explicit periods every calendar month is a period.
type FiscalConfig struct {
	YearStart string         `yaml:"year_start"` // "MM-DD" format, e.g. "01-01"
	Periods   []PeriodConfig `yaml:"periods,omitempty"`
}

// PeriodConfig is one explicit fiscal period; dates are YYYY-MM-DD and
// inclusive.
type PeriodConfig struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// BankAccount maps a bank feed to a chart-of-accounts entry. The default
// account is the cash side of single-account postings.
type BankAccount struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	LastFour    string `yaml:"last_four"`
	AccountCode string `yaml:"account_code"`
	Default     bool   `yaml:"default,omitempty"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PostingConfig controls journal generation.
type PostingConfig struct {
	CreatedBy            string `yaml:"created_by"`
	OpeningOffsetAccount string `yaml:"opening_offset_account"`
}

// Load reads a ledger.yaml file from disk and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv()
	return &cfg, nil
}

// LoadDotEnv loads environment variables from envPath. With no path it
// tries .env in the current directory and ignores a missing file.
// Variables already set in the environment win.
func LoadDotEnv(envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("loading %s: %w", envPath, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides file settings with the LEDGER_* environment variables
// that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCompanyID); v != "" {
		c.Company.ID = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvCreatedBy); v != "" {
		c.Posting.CreatedBy = v
	}
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new repository.
func Default(companyID, name, entityType string) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:         companyID,
			Name:       name,
			EntityType: entityType,
		},
		Fiscal: FiscalConfig{
			YearStart: "01-01",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "data/ledger.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logger.FormatConsole,
		},
		Posting: PostingConfig{
			CreatedBy:            "ledger",
			OpeningOffsetAccount: "3900",
		},
	}
}

// Validate reports every invalid or missing setting in one error.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Company.ID == "" {
		add("company.id is required (or set %s)", EnvCompanyID)
	}
	if _, err := time.Parse("01-02", c.Fiscal.YearStart); c.Fiscal.YearStart != "" && err != nil {
		add("fiscal.year_start %q is not MM-DD", c.Fiscal.YearStart)
	}
	if _, err := c.FiscalPeriods(); err != nil {
		add("%v", err)
	}

	defaults := 0
	for i, b := range c.BankAccounts {
		if b.AccountCode == "" {
			add("bank_accounts[%d] (%s) has no account_code", i, b.Name)
		}
		if b.Default {
			defaults++
		}
	}
	if defaults > 1 {
		add("bank_accounts: %d accounts are marked default, at most one may be", defaults)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			add("database.path is required for the sqlite driver (or set %s)", EnvDBPath)
		}
	case DriverMemory:
	default:
		add("database.driver %q is not one of %s, %s", c.Database.Driver, DriverSQLite, DriverMemory)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		add("logging.format %q is not console or json", c.Logging.Format)
	}

	if c.Posting.CreatedBy == "" {
		add("posting.created_by is required (or set %s)", EnvCreatedBy)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// CashAccountCode returns the account code of the default bank account, or
// of the only bank account when just one is configured.
func (c *Config) CashAccountCode() (string, bool) {
	for _, b := range c.BankAccounts {
		if b.Default {
			return b.AccountCode, true
		}
	}
	if len(c.BankAccounts) == 1 {
		return c.BankAccounts[0].AccountCode, true
	}
	return "", false
}

// DBPath resolves the database path against repoRoot.
func (c *Config) DBPath(repoRoot string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(repoRoot, c.Database.Path)
}

// FiscalPeriods returns the explicit periods for the company. Periods must
// not overlap.
func (c *Config) FiscalPeriods() ([]model.FiscalPeriod, error) {
	var out []model.FiscalPeriod
	for i, p := range c.Fiscal.Periods {
		if p.ID == "" {
			return nil, fmt.Errorf("fiscal.periods[%d] has no id", i)
		}
		start, err := time.Parse(dateFormat, p.Start)
		if err != nil {
			return nil, fmt.Errorf("fiscal period %s: start: %w", p.ID, err)
		}
		end, err := time.Parse(dateFormat, p.End)
		if err != nil {
			return nil, fmt.Errorf("fiscal period %s: end: %w", p.ID, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("fiscal period %s ends before it starts", p.ID)
		}
		fp := model.FiscalPeriod{CompanyID: c.Company.ID, ID: p.ID, Start: start, End: end}
		for _, prev := range out {
			if !fp.Start.After(prev.End) && !prev.Start.After(fp.End) {
				return nil, fmt.Errorf("fiscal periods %s and %s overlap", prev.ID, fp.ID)
			}
		}
		out = append(out, fp)
	}
	return out, nil
}
