// Package importer reads parsed bank statement files into transactions and
// assigns them to fiscal periods.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cleared-dev/ledger/internal/model"
)

// Parser converts a statement CSV file into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

var parsers = map[string]func() Parser{
	"canonical": func() Parser { return &CanonicalParser{} },
}

// ParserFor returns the parser for a statement format, matched
// case-insensitively.
func ParserFor(format string) (Parser, error) {
	newParser, ok := parsers[strings.ToLower(format)]
	if !ok {
		known := make([]string, 0, len(parsers))
		for k := range parsers {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown import format %q (known: %s)", format, strings.Join(known, ", "))
	}
	return newParser(), nil
}

const (
	inboxDir     = "import"
	processedDir = "import/processed"
)

// Pending returns the paths of the statement CSVs waiting in
// <repoRoot>/import/, sorted by name. A missing directory means none.
func Pending(repoRoot string) ([]string, error) {
	dir := filepath.Join(repoRoot, inboxDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// Archive moves an imported statement into <repoRoot>/import/processed/.
func Archive(repoRoot, path string) error {
	dstDir := filepath.Join(repoRoot, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	name := filepath.Base(path)
	if err := os.Rename(path, filepath.Join(dstDir, name)); err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}
	return nil
}

// Statement is one parsed file, ready to store: every transaction carries
// the company and its fiscal period.
type Statement struct {
	File         string
	Transactions []model.BankTransaction
	Periods      []model.FiscalPeriod
}

// Read parses the file at path and assigns its transactions to periods; see
// AssignPeriods.
func Read(p Parser, path, companyID string, periods []model.FiscalPeriod) (Statement, error) {
	txns, err := ParseFile(p, path)
	if err != nil {
		return Statement{}, err
	}
	name := filepath.Base(path)
	txns, used, err := AssignPeriods(companyID, txns, periods)
	if err != nil {
		return Statement{}, fmt.Errorf("%s: %w", name, err)
	}
	return Statement{File: name, Transactions: txns, Periods: used}, nil
}

// ParseFile reads one statement file with p.
func ParseFile(p Parser, path string) ([]model.BankTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return txns, nil
}

// AssignPeriods stamps each transaction with the company and the fiscal
// period containing its date, and returns the periods used ordered by start.
// With explicit periods a date outside all of them is an error; without,
// every calendar month is a period.
func AssignPeriods(companyID string, txns []model.BankTransaction, periods []model.FiscalPeriod) ([]model.BankTransaction, []model.FiscalPeriod, error) {
	out := make([]model.BankTransaction, len(txns))
	used := make(map[string]model.FiscalPeriod)
	for i, t := range txns {
		p, ok := findPeriod(t.Date, periods)
		if !ok {
			if len(periods) > 0 {
				return nil, nil, fmt.Errorf("transaction %s dated %s is outside every fiscal period", t.ID, t.Date.Format("2006-01-02"))
			}
			p = MonthPeriod(companyID, t.Date)
		}
		p.CompanyID = companyID
		t.CompanyID = companyID
		t.FiscalPeriodID = p.ID
		out[i] = t
		used[p.ID] = p
	}

	ps := make([]model.FiscalPeriod, 0, len(used))
	for _, p := range used {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Start.Before(ps[j].Start) })
	return out, ps, nil
}

func findPeriod(d time.Time, periods []model.FiscalPeriod) (model.FiscalPeriod, bool) {
	for _, p := range periods {
		if p.Contains(d) {
			return p, true
		}
	}
	return model.FiscalPeriod{}, false
}

// MonthPeriod returns the calendar-month period containing d, with id YYYY-MM.
func MonthPeriod(companyID string, d time.Time) model.FiscalPeriod {
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return model.FiscalPeriod{
		CompanyID: companyID,
		ID:        start.Format("2006-01"),
		Start:     start,
		End:       start.AddDate(0, 1, -1),
	}
}
