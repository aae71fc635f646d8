package store

// Schema creates the ledger tables. Money columns hold decimal strings so
// no precision is lost; dates are YYYY-MM-DD.
const Schema = `
CREATE TABLE IF NOT EXISTS fiscal_periods (
    company_id TEXT NOT NULL,
    period_id  TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date   TEXT NOT NULL,
    PRIMARY KEY (company_id, period_id)
);

CREATE TABLE IF NOT EXISTS bank_transactions (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id     TEXT NOT NULL,
    period_id      TEXT NOT NULL,
    txn_id         TEXT NOT NULL,
    txn_date       TEXT NOT NULL,
    description    TEXT NOT NULL,
    debit          TEXT NOT NULL,
    credit         TEXT NOT NULL,
    balance        TEXT NOT NULL,
    account_code   TEXT NOT NULL DEFAULT '',
    debit_account  TEXT NOT NULL DEFAULT '',
    credit_account TEXT NOT NULL DEFAULT '',
    UNIQUE (company_id, period_id, txn_id)
);

CREATE INDEX IF NOT EXISTS idx_bank_transactions_scope
    ON bank_transactions(company_id, period_id, txn_date);

CREATE TABLE IF NOT EXISTS journal_entries (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id       TEXT NOT NULL UNIQUE,
    company_id     TEXT NOT NULL,
    period_id      TEXT NOT NULL,
    entry_date     TEXT NOT NULL,
    description    TEXT NOT NULL,
    reference      TEXT NOT NULL,
    source_txn_id  TEXT NOT NULL DEFAULT '',
    created_by     TEXT NOT NULL,
    created_at     TEXT NOT NULL,
    UNIQUE (company_id, period_id, reference)
);

CREATE TABLE IF NOT EXISTS journal_lines (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    line_id       TEXT NOT NULL UNIQUE,
    entry_id      TEXT NOT NULL REFERENCES journal_entries(entry_id) ON DELETE CASCADE,
    account_code  TEXT NOT NULL,
    debit         TEXT NOT NULL,
    credit        TEXT NOT NULL,
    description   TEXT NOT NULL,
    source_txn_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_journal_lines_entry
    ON journal_lines(entry_id);
`
