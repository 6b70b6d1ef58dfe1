package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS send_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id    TEXT NOT NULL,
	lead_email TEXT NOT NULL,
	subject    TEXT NOT NULL,
	template   TEXT NOT NULL,
	result     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	sent_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_send_log_sent_at ON send_log(sent_at);

CREATE TABLE IF NOT EXISTS run_summaries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	kind           TEXT NOT NULL,
	leads_checked  INTEGER NOT NULL,
	drafts_created INTEGER NOT NULL,
	errors         INTEGER NOT NULL,
	started_at     TIMESTAMP NOT NULL,
	finished_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_summaries_kind ON run_summaries(kind, finished_at);
`

// DB wraps the sqlite activity log.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// SendEntry is one outcome row for an attempted email send.
type SendEntry struct {
	ID        int64     `db:"id"`
	LeadID    string    `db:"lead_id"`
	LeadEmail string    `db:"lead_email"`
	Subject   string    `db:"subject"`
	Template  string    `db:"template"`
	Result    string    `db:"result"`
	Detail    string    `db:"detail"`
	SentAt    time.Time `db:"sent_at"`
}

// RunSummary records one agent run.
type RunSummary struct {
	ID            int64     `db:"id"`
	Kind          string    `db:"kind"`
	LeadsChecked  int       `db:"leads_checked"`
	DraftsCreated int       `db:"drafts_created"`
	Errors        int       `db:"errors"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
}

// New opens the sqlite database at path and applies the schema.
func New(path string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sqlx.Connect("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{
		conn:   conn,
		logger: logger.With("component", "database"),
	}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// RecordSend appends a send outcome to the log.
func (d *DB) RecordSend(entry SendEntry) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := d.conn.NamedExec(`
		INSERT INTO send_log (lead_id, lead_email, subject, template, result, detail, sent_at)
		VALUES (:lead_id, :lead_email, :subject, :template, :result, :detail, :sent_at)`,
		entry)
	if err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}
	return nil
}

// RecentSends returns the latest send outcomes, newest first.
func (d *DB) RecentSends(limit int) ([]SendEntry, error) {
	var entries []SendEntry
	err := d.conn.Select(&entries,
		`SELECT * FROM send_log ORDER BY sent_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query send log: %w", err)
	}
	return entries, nil
}

// SendsSince counts send outcomes grouped by result since the given time.
func (d *DB) SendsSince(since time.Time) (map[string]int, error) {
	rows, err := d.conn.Queryx(
		`SELECT result, COUNT(*) FROM send_log WHERE sent_at >= ? GROUP BY result`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count sends: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var result string
		var count int
		if err := rows.Scan(&result, &count); err != nil {
			return nil, fmt.Errorf("failed to scan send count: %w", err)
		}
		counts[result] = count
	}
	return counts, rows.Err()
}

// RecordRun appends a run summary.
func (d *DB) RecordRun(summary RunSummary) error {
	_, err := d.conn.NamedExec(`
		INSERT INTO run_summaries (kind, leads_checked, drafts_created, errors, started_at, finished_at)
		VALUES (:kind, :leads_checked, :drafts_created, :errors, :started_at, :finished_at)`,
		summary)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run of the given kind, or nil when the
// agent has never run.
func (d *DB) LastRun(kind string) (*RunSummary, error) {
	var summary RunSummary
	err := d.conn.Get(&summary,
		`SELECT * FROM run_summaries WHERE kind = ? ORDER BY finished_at DESC, id DESC LIMIT 1`, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}
	return &summary, nil
}
