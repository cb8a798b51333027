package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/newthinker/sextant/internal/core"
)

// Schema creates the runs table. params and results hold JSON documents.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	days INTEGER NOT NULL,
	params TEXT NOT NULL,
	results TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Compile-time interface checks.
var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dsn and applies the
// schema. Use ":memory:" for a throwaway database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("applying schema: %w", err))
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a record.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("nil record"))
	}
	prepare(rec)

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding params: %w", err))
	}
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding results: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, name, symbol, timeframe, days, params, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Symbol, rec.Timeframe, rec.Days,
		string(params), string(results), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// Get returns a single record by ID.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, symbol, timeframe, days, params, results, created_at
		FROM runs
		WHERE id = ?`, runID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(runID)
		}
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return &rec, nil
}

// List returns summaries matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	where, args := whereClause(filter)
	query := `
		SELECT id, name, symbol, timeframe, days, params, results, created_at
		FROM runs` + where + `
		ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return out, nil
}

// Count returns the number of records matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := whereClause(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs"+where, args...).Scan(&n); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return n, nil
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if n == 0 {
		return notFound(runID)
	}
	return nil
}

func whereClause(filter ListFilter) (string, []any) {
	if filter.Symbol == "" {
		return "", nil
	}
	return " WHERE symbol = ?", []any{strings.ToUpper(filter.Symbol)}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		params    string
		results   string
		createdAt int64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Symbol,
		&rec.Timeframe,
		&rec.Days,
		&params,
		&results,
		&createdAt,
	); err != nil {
		return Record{}, err
	}

	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return Record{}, fmt.Errorf("decoding params of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(results), &rec.Results); err != nil {
		return Record{}, fmt.Errorf("decoding results of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}
