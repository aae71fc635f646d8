// Package runlog keeps a durable CSV record of ledger runs under logs/.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/ledger/internal/model"
)

// Operations recorded in the run log.
const (
	OpImport     = "import"
	OpClassify   = "classify"
	OpSync       = "sync"
	OpRegenerate = "regenerate"
	OpSkipped    = "skipped"
	OpOpening    = "opening_balances"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	Operation string
	Company   string
	Detail    string
	Reference string
}

// Header is the CSV header for ledger-log.csv.
const Header = "timestamp,operation,company,detail,reference"

const (
	numFields    = 5
	logDir       = "logs"
	logFile      = "logs/ledger-log.csv"
	colTimestamp = 0
	colOperation = 1
	colCompany   = 2
	colDetail    = 3
	colReference = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colOperation] = e.Operation
	row[colCompany] = e.Company
	row[colDetail] = e.Detail
	row[colReference] = e.Reference
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		Operation: record[colOperation],
		Company:   record[colCompany],
		Detail:    record[colDetail],
		Reference: record[colReference],
	}, nil
}

// Skipped turns the transactions a regeneration skipped into one entry each.
func Skipped(at time.Time, companyID string, skipped []model.Skipped) []Entry {
	out := make([]Entry, len(skipped))
	for i, s := range skipped {
		out[i] = Entry{
			Timestamp: at,
			Operation: OpSkipped,
			Company:   companyID,
			Detail:    s.Reason,
			Reference: s.Transaction.String(),
		}
	}
	return out
}

// Append writes entries to <repoRoot>/logs/ledger-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/ledger-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
