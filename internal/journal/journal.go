package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jdelaire/relaybot/core"
)

// Journal records dispatch outcomes in SQLite.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging journal: %w", err)
	}
	return migrate(db)
}

// OpenMemory creates an in-memory journal (useful for testing).
func OpenMemory() (*Journal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory journal: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return migrate(db)
}

func migrate(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Journal{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    command_id TEXT NOT NULL,
    update_id INTEGER NOT NULL,
    chat_id INTEGER NOT NULL,
    command TEXT NOT NULL,
    outcome TEXT NOT NULL CHECK(outcome IN ('handled','failed','no_handler','rejected')),
    error TEXT NOT NULL DEFAULT '',
    at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dispatches_chat ON dispatches(chat_id);
CREATE INDEX IF NOT EXISTS idx_dispatches_update ON dispatches(update_id);
`

// Record implements core.Recorder.
func (j *Journal) Record(ctx context.Context, rec core.DispatchRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO dispatches (command_id, update_id, chat_id, command, outcome, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CommandID, rec.UpdateID, rec.ChatID, rec.Kind.String(), rec.Outcome.String(), rec.Error,
		rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording dispatch %s: %w", rec.CommandID, err)
	}
	return nil
}

// Summary counts recorded outcomes for chatID, keyed by outcome name.
func (j *Journal) Summary(ctx context.Context, chatID int64) (map[string]int64, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM dispatches WHERE chat_id = ? GROUP BY outcome`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Entry is one journaled dispatch.
type Entry struct {
	CommandID string    `json:"command_id"`
	UpdateID  int64     `json:"update_id"`
	ChatID    int64     `json:"chat_id"`
	Command   string    `json:"command"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT command_id, update_id, chat_id, command, outcome, error, at
		 FROM dispatches ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.CommandID, &e.UpdateID, &e.ChatID, &e.Command, &e.Outcome, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
