package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	bound      INTEGER NOT NULL,
	exponent   INTEGER NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS exponential_sums (
	run_id           TEXT NOT NULL REFERENCES runs(run_id),
	prime_p          INTEGER NOT NULL,
	re_sp_over_sqrtp REAL NOT NULL,
	im_sp_over_sqrtp REAL NOT NULL,
	magnitude        REAL NOT NULL,
	PRIMARY KEY (run_id, prime_p)
);
`

// ResultArchive keeps every run's table in a SQLite database so runs with
// different bounds can be compared later.
type ResultArchive struct {
	sqlDB *sql.DB
}

// OpenResultArchive opens (and if needed creates) the archive at path.
func OpenResultArchive(path string) (*ResultArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "open archive", Err: err}
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, &PersistenceError{Path: path, Op: "ping archive", Err: err}
	}

	if _, err := sqlDB.Exec(archiveSchema); err != nil {
		_ = sqlDB.Close()
		return nil, &PersistenceError{Path: path, Op: "migrate archive", Err: err}
	}

	return &ResultArchive{sqlDB: sqlDB}, nil
}

func (a *ResultArchive) Close() error {
	if a == nil || a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.Close()
}

// SaveRun stores the run row and its table in one transaction.
func (a *ResultArchive) SaveRun(ctx context.Context, runID string, bound int, c Construction, table *ResultTable) error {
	tx, err := a.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, bound, exponent, row_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, bound, c.Exponent, table.Len(), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exponential_sums (run_id, prime_p, re_sp_over_sqrtp, im_sp_over_sqrtp, magnitude) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range table.Results {
		if _, err := stmt.ExecContext(ctx, runID, r.Prime, r.Re(), r.Im(), r.Magnitude); err != nil {
			return fmt.Errorf("insert p=%d: %w", r.Prime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	return nil
}

// LoadRun reads back the table stored for runID in ascending prime order.
func (a *ResultArchive) LoadRun(ctx context.Context, runID string) (*ResultTable, error) {
	rows, err := a.sqlDB.QueryContext(ctx,
		`SELECT prime_p, re_sp_over_sqrtp, im_sp_over_sqrtp, magnitude
		 FROM exponential_sums WHERE run_id = ? ORDER BY prime_p`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	table := &ResultTable{}
	for rows.Next() {
		var (
			p          int
			re, im, mg float64
		)
		if err := rows.Scan(&p, &re, &im, &mg); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", runID, err)
		}
		normalized := complex(re, im)
		table.Results = append(table.Results, ExponentialSumResult{
			Prime:      p,
			Normalized: normalized,
			Sum:        normalized * complex(sqrtInt(p), 0),
			Magnitude:  mg,
		})
	}
	return table, rows.Err()
}
