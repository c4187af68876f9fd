// Package store persists REPL session data: the statements a user has
// run, keyed by language, and (optionally) the execution profile of a
// run for later inspection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History records every statement submitted to an interactive session,
// backed by a local sqlite database so a REPL's history survives
// across process restarts.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) a history database at
// path. Passing ":memory:" gives a session-scoped, non-persistent
// history, useful for tests.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	lang       TEXT NOT NULL,
	source     TEXT NOT NULL,
	ok         INTEGER NOT NULL,
	ran_at     DATETIME NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error { return h.db.Close() }

// Record appends one submitted statement and whether it compiled and
// ran without error.
func (h *History) Record(ctx context.Context, lang, source string, ok bool) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO history (lang, source, ok, ran_at) VALUES (?, ?, ?, ?)`,
		lang, source, boolToInt(ok), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

// Entry is one recorded statement.
type Entry struct {
	Lang   string
	Source string
	OK     bool
	RanAt  time.Time
}

// Recent returns the most recent n entries for lang, newest first. A
// zero or negative n returns every entry for lang.
func (h *History) Recent(ctx context.Context, lang string, n int) ([]Entry, error) {
	query := `SELECT lang, source, ok, ran_at FROM history WHERE lang = ? ORDER BY id DESC`
	args := []any{lang}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ok int
		if err := rows.Scan(&e.Lang, &e.Source, &ok, &e.RanAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
