package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

const (
	dateFormat      = "2006-01-02"
	timestampFormat = time.RFC3339Nano
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	q    querier
	path string
}

// OpenSQLite opens (creating if needed) the database at path, with foreign
// keys and WAL enabled, and applies Schema.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLite{db: db, q: db, path: path}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// WithinTx implements Store. The transaction is rolled back when fn returns
// an error or panics.
func (s *SQLite) WithinTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&SQLite{db: s.db, q: tx, path: s.path}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveFiscalPeriod inserts or replaces a period.
func (s *SQLite) SaveFiscalPeriod(ctx context.Context, p model.FiscalPeriod) error {
	if p.CompanyID == "" || p.ID == "" {
		return fmt.Errorf("fiscal period needs company and id")
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("fiscal period %s ends before it starts", p.ID)
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO fiscal_periods (company_id, period_id, start_date, end_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(company_id, period_id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		p.CompanyID, p.ID, p.Start.Format(dateFormat), p.End.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("saving fiscal period %s: %w", p.ID, err)
	}
	return nil
}

// FiscalPeriod returns a period or a NotFoundError.
func (s *SQLite) FiscalPeriod(ctx context.Context, companyID, periodID string) (model.FiscalPeriod, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT company_id, period_id, start_date, end_date
		FROM fiscal_periods WHERE company_id = ? AND period_id = ?`, companyID, periodID)

	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FiscalPeriod{}, periodNotFound(companyID, periodID)
	}
	if err != nil {
		return model.FiscalPeriod{}, fmt.Errorf("reading fiscal period %s: %w", periodID, err)
	}
	return p, nil
}

// FiscalPeriods returns a company's periods ordered by start date.
func (s *SQLite) FiscalPeriods(ctx context.Context, companyID string) ([]model.FiscalPeriod, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT company_id, period_id, start_date, end_date
		FROM fiscal_periods WHERE company_id = ? ORDER BY start_date`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal periods: %w", err)
	}
	defer rows.Close()

	var out []model.FiscalPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fiscal period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPeriod(sc scanner) (model.FiscalPeriod, error) {
	var p model.FiscalPeriod
	var start, end string
	if err := sc.Scan(&p.CompanyID, &p.ID, &start, &end); err != nil {
		return model.FiscalPeriod{}, err
	}
	var err error
	if p.Start, err = time.Parse(dateFormat, start); err != nil {
		return model.FiscalPeriod{}, fmt.Errorf("parsing start_date %q: %w", start, err)
	}
	if p.End, err = time.Parse(dateFormat, end); err != nil {
		return model.FiscalPeriod{}, fmt.Errorf("parsing end_date %q: %w", end, err)
	}
	return p, nil
}

// SaveTransactions implements Repository.
func (s *SQLite) SaveTransactions(ctx context.Context, txns ...model.BankTransaction) (int, error) {
	inserted := 0
	for _, t := range txns {
		if t.CompanyID == "" || t.FiscalPeriodID == "" || t.ID == "" {
			return inserted, fmt.Errorf("transaction %q needs company, fiscal period and id", t.ID)
		}
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO bank_transactions
				(company_id, period_id, txn_id, txn_date, description, debit, credit, balance,
				 account_code, debit_account, credit_account)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, period_id, txn_id) DO NOTHING`,
			t.CompanyID, t.FiscalPeriodID, t.ID, t.Date.Format(dateFormat), t.Description,
			t.Debit.String(), t.Credit.String(), t.Balance.String(),
			t.Classification.AccountCode, t.Classification.DebitAccount, t.Classification.CreditAccount)
		if err != nil {
			return inserted, fmt.Errorf("saving transaction %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("getting rows affected: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

const txnColumns = `company_id, period_id, txn_id, txn_date, description, debit, credit, balance,
	account_code, debit_account, credit_account`

// Transaction returns one transaction or a NotFoundError.
func (s *SQLite) Transaction(ctx context.Context, key model.TransactionKey) (model.BankTransaction, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM bank_transactions
		WHERE company_id = ? AND period_id = ? AND txn_id = ?`,
		key.CompanyID, key.FiscalPeriodID, key.ID)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankTransaction{}, transactionNotFound(key)
	}
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("reading transaction %s: %w", key, err)
	}
	return t, nil
}

// Transactions implements Repository.
func (s *SQLite) Transactions(ctx context.Context, f TransactionFilter) ([]model.BankTransaction, error) {
	query := `SELECT ` + txnColumns + ` FROM bank_transactions WHERE company_id = ?`
	args := []any{f.CompanyID}
	if f.FiscalPeriodID != "" {
		query += ` AND period_id = ?`
		args = append(args, f.FiscalPeriodID)
	}
	switch f.Classification {
	case OnlyClassified:
		query += ` AND (account_code != '' OR (debit_account != '' AND credit_account != ''))`
	case OnlyUnclassified:
		query += ` AND account_code = '' AND (debit_account = '' OR credit_account = '')`
	}
	query += ` ORDER BY txn_date, seq`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.BankTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(sc scanner) (model.BankTransaction, error) {
	var t model.BankTransaction
	var date, debit, credit, balance string
	err := sc.Scan(&t.CompanyID, &t.FiscalPeriodID, &t.ID, &date, &t.Description,
		&debit, &credit, &balance,
		&t.Classification.AccountCode, &t.Classification.DebitAccount, &t.Classification.CreditAccount)
	if err != nil {
		return model.BankTransaction{}, err
	}
	if t.Date, err = time.Parse(dateFormat, date); err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing txn_date %q: %w", date, err)
	}
	if t.Debit, err = decimal.NewFromString(debit); err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing debit %q: %w", debit, err)
	}
	if t.Credit, err = decimal.NewFromString(credit); err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing credit %q: %w", credit, err)
	}
	if t.Balance, err = decimal.NewFromString(balance); err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	return t, nil
}

// SetClassification implements Repository.
func (s *SQLite) SetClassification(ctx context.Context, key model.TransactionKey, c model.Classification) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE bank_transactions SET account_code = ?, debit_account = ?, credit_account = ?
		WHERE company_id = ? AND period_id = ? AND txn_id = ?`,
		c.AccountCode, c.DebitAccount, c.CreditAccount, key.CompanyID, key.FiscalPeriodID, key.ID)
	if err != nil {
		return fmt.Errorf("classifying transaction %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return transactionNotFound(key)
	}
	return nil
}

// InsertJournalEntry writes an entry and its lines.
func (s *SQLite) InsertJournalEntry(ctx context.Context, e model.JournalEntry) error {
	exists, err := s.HasJournalEntry(ctx, e.CompanyID, e.FiscalPeriodID, e.Reference)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s in %s/%s: %w", e.Reference, e.CompanyID, e.FiscalPeriodID, ErrDuplicateReference)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO journal_entries
			(entry_id, company_id, period_id, entry_date, description, reference, source_txn_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.FiscalPeriodID, e.Date.Format(dateFormat), e.Description, e.Reference,
		e.SourceTransactionID, e.CreatedBy, e.CreatedAt.UTC().Format(timestampFormat))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(sqliteErr.Error(), "reference") {
			return fmt.Errorf("%s in %s/%s: %w", e.Reference, e.CompanyID, e.FiscalPeriodID, ErrDuplicateReference)
		}
		return fmt.Errorf("inserting journal entry %s: %w", e.Reference, err)
	}

	for _, l := range e.Lines {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO journal_lines (line_id, entry_id, account_code, debit, credit, description, source_txn_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, e.ID, l.AccountCode, l.Debit.String(), l.Credit.String(), l.Description, l.SourceTransactionID)
		if err != nil {
			return fmt.Errorf("inserting journal line for %s: %w", e.Reference, err)
		}
	}
	return nil
}

// HasJournalEntry implements Repository.
func (s *SQLite) HasJournalEntry(ctx context.Context, companyID, periodID, reference string) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM journal_entries
		WHERE company_id = ? AND period_id = ? AND reference = ?`,
		companyID, periodID, reference).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking journal entry %s: %w", reference, err)
	}
	return count > 0, nil
}

// JournalEntries returns a company's entries with lines, ordered by date
// then insertion.
func (s *SQLite) JournalEntries(ctx context.Context, companyID string) ([]model.JournalEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.entry_id, e.company_id, e.period_id, e.entry_date, e.description, e.reference,
		       e.source_txn_id, e.created_by, e.created_at,
		       l.line_id, l.account_code, l.debit, l.credit, l.description, l.source_txn_id
		FROM journal_entries e
		JOIN journal_lines l ON l.entry_id = e.entry_id
		WHERE e.company_id = ?
		ORDER BY e.entry_date, e.seq, l.seq`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var l model.JournalLine
		var date, createdAt, debit, credit string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.FiscalPeriodID, &date, &e.Description, &e.Reference,
			&e.SourceTransactionID, &e.CreatedBy, &createdAt,
			&l.ID, &l.AccountCode, &debit, &credit, &l.Description, &l.SourceTransactionID); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		l.EntryID = e.ID
		if l.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("parsing debit %q: %w", debit, err)
		}
		if l.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("parsing credit %q: %w", credit, err)
		}

		if n := len(out); n > 0 && out[n-1].ID == e.ID {
			out[n-1].Lines = append(out[n-1].Lines, l)
			continue
		}
		if e.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing entry_date %q: %w", date, err)
		}
		if e.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		e.Lines = []model.JournalLine{l}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteJournalEntry implements Repository. Lines go with the entry through
// the ON DELETE CASCADE foreign key.
func (s *SQLite) DeleteJournalEntry(ctx context.Context, companyID, periodID, reference string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM journal_entries WHERE company_id = ? AND period_id = ? AND reference = ?`,
		companyID, periodID, reference)
	if err != nil {
		return false, fmt.Errorf("deleting journal entry %s: %w", reference, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteJournalEntries implements Repository.
func (s *SQLite) DeleteJournalEntries(ctx context.Context, companyID, refPrefix string) (int, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM journal_entries WHERE company_id = ? AND substr(reference, 1, ?) = ?`,
		companyID, len(refPrefix), refPrefix)
	if err != nil {
		return 0, fmt.Errorf("deleting journal entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return int(n), nil
}

// PostedLines implements Repository.
func (s *SQLite) PostedLines(ctx context.Context, companyID, periodID string) ([]model.PostedLine, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.period_id, e.entry_date, e.reference,
		       l.line_id, l.entry_id, l.account_code, l.debit, l.credit, l.description, l.source_txn_id
		FROM journal_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.company_id = ? AND e.period_id = ?
		ORDER BY e.entry_date, e.seq, l.seq`, companyID, periodID)
	if err != nil {
		return nil, fmt.Errorf("listing posted lines: %w", err)
	}
	defer rows.Close()

	var out []model.PostedLine
	for rows.Next() {
		var pl model.PostedLine
		var date, debit, credit string
		if err := rows.Scan(&pl.FiscalPeriodID, &date, &pl.Reference,
			&pl.ID, &pl.EntryID, &pl.AccountCode, &debit, &credit, &pl.Description, &pl.SourceTransactionID); err != nil {
			return nil, fmt.Errorf("scanning posted line: %w", err)
		}
		if pl.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing entry_date %q: %w", date, err)
		}
		if pl.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("parsing debit %q: %w", debit, err)
		}
		if pl.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("parsing credit %q: %w", credit, err)
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

var _ Store = (*SQLite)(nil)
