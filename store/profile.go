package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// Profile records, per run (keyed by a caller-supplied run ID), how
// many instructions each opcode executed — an optional analytical sink a caller can enable
// with -profile, backed by an embedded DuckDB database so profile
// data can be queried and aggregated with SQL after the fact rather
// than only printed once and discarded.
type Profile struct {
	db *sql.DB
}

// OpenProfile opens (creating if necessary) a profile database at
// path. Passing "" opens an in-memory database.
func OpenProfile(path string) (*Profile, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS opcode_counts (
	run_id  BIGINT NOT NULL,
	lang    VARCHAR NOT NULL,
	opcode  VARCHAR NOT NULL,
	count   BIGINT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create profile schema: %w", err)
	}

	return &Profile{db: db}, nil
}

// Close releases the underlying database handle.
func (p *Profile) Close() error { return p.db.Close() }

// Record stores one run's per-opcode execution counts.
func (p *Profile) Record(ctx context.Context, runID int64, lang string, counts map[string]int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO opcode_counts (run_id, lang, opcode, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare profile insert: %w", err)
	}
	defer stmt.Close()

	for op, n := range counts {
		if _, err := stmt.ExecContext(ctx, runID, lang, op, n); err != nil {
			return fmt.Errorf("insert opcode count for %s: %w", op, err)
		}
	}
	return tx.Commit()
}

// TopOpcodes returns the n most-executed opcodes across every run
// recorded for lang, aggregated by opcode.
func (p *Profile) TopOpcodes(ctx context.Context, lang string, n int) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT opcode, SUM(count) AS total FROM opcode_counts WHERE lang = ? GROUP BY opcode ORDER BY total DESC LIMIT ?`,
		lang, n)
	if err != nil {
		return nil, fmt.Errorf("query top opcodes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var op string
		var total int64
		if err := rows.Scan(&op, &total); err != nil {
			return nil, fmt.Errorf("scan opcode row: %w", err)
		}
		out[op] = total
	}
	return out, rows.Err()
}
