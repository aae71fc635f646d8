package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// CanonicalParser reads already-normalised statement CSVs with the columns
// id,date,description,debit,credit,balance. Dates are YYYY-MM-DD; an empty
// amount is zero.
type CanonicalParser struct{}

// CanonicalHeader is the expected header row.
const CanonicalHeader = "id,date,description,debit,credit,balance"

const (
	canonDateFormat = "2006-01-02"
	canonNumFields  = 6
	canonColID      = 0
	canonColDate    = 1
	canonColDesc    = 2
	canonColDebit   = 3
	canonColCredit  = 4
	canonColBalance = 5
)

// Format returns the parser name.
func (p *CanonicalParser) Format() string { return "canonical" }

// Parse reads a canonical CSV and returns BankTransactions without company
// or fiscal period; see AssignPeriods.
func (p *CanonicalParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = canonNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != CanonicalHeader {
		return nil, fmt.Errorf("unexpected header %q, want %q", got, CanonicalHeader)
	}

	seen := make(map[string]int)
	var txns []model.BankTransaction
	for i, rec := range records[1:] {
		row := i + 2
		txn, err := parseCanonicalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if prev, ok := seen[txn.ID]; ok {
			return nil, fmt.Errorf("row %d: id %q already used on row %d", row, txn.ID, prev)
		}
		seen[txn.ID] = row
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseCanonicalRow(rec []string) (model.BankTransaction, error) {
	id := strings.TrimSpace(rec[canonColID])
	if id == "" {
		return model.BankTransaction{}, fmt.Errorf("missing id")
	}

	date, err := time.Parse(canonDateFormat, strings.TrimSpace(rec[canonColDate]))
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing date %q: %w", rec[canonColDate], err)
	}

	debit, err := parseAmount(rec[canonColDebit])
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing debit %q: %w", rec[canonColDebit], err)
	}
	credit, err := parseAmount(rec[canonColCredit])
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing credit %q: %w", rec[canonColCredit], err)
	}
	balance, err := parseAmount(rec[canonColBalance])
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing balance %q: %w", rec[canonColBalance], err)
	}

	switch {
	case debit.IsNegative() || credit.IsNegative():
		return model.BankTransaction{}, fmt.Errorf("transaction %s: negative amount", id)
	case debit.IsZero() == credit.IsZero():
		return model.BankTransaction{}, fmt.Errorf("transaction %s: exactly one of debit or credit must be set", id)
	}

	return model.BankTransaction{
		ID:          id,
		Date:        date,
		Description: strings.TrimSpace(rec[canonColDesc]),
		Debit:       debit,
		Credit:      credit,
		Balance:     balance,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
