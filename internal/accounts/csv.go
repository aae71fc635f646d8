package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/ledger/internal/model"
)

const (
	numFields = 4
	colCode   = 0
	colName   = 1
	colNature = 2
	colActive = 3
)

var header = []string{"account_code", "account_name", "nature", "active"}

// ReadAccounts reads chart-of-accounts.csv. CompanyID is left empty.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colNature] = string(acct.Nature)
	row[colActive] = strconv.FormatBool(acct.Active)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	if record[colCode] == "" {
		return model.Account{}, fmt.Errorf("empty account_code")
	}

	nature, err := model.ParseNature(record[colNature])
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", record[colCode], err)
	}

	active := true
	if record[colActive] != "" {
		active, err = strconv.ParseBool(record[colActive])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing active %q: %w", record[colActive], err)
		}
	}

	return model.Account{
		Code:   record[colCode],
		Name:   record[colName],
		Nature: nature,
		Active: active,
	}, nil
}
