package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"davinci-allocation/internal/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteAllocationStore stores one row per allocation; SaveAll rewrites the table inside a
// single transaction.
type SQLiteAllocationStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteAllocationStore opens (creating if needed) the database at path.
func NewSQLiteAllocationStore(path string) (*SQLiteAllocationStore, error) {
	if path == "" {
		path = "data/allocations.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, unavailable("create dirs", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS allocations (
		allocation_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, unavailable("create allocations table", err)
	}
	return &SQLiteAllocationStore{db: db, path: path}, nil
}

func (s *SQLiteAllocationStore) LoadAll(ctx context.Context) ([]domain.Allocation, error) {
	return loadRows(ctx, s.db, `SELECT payload FROM allocations ORDER BY position`)
}

func (s *SQLiteAllocationStore) SaveAll(ctx context.Context, allocations []domain.Allocation) error {
	return replaceRows(ctx, s.db, allocations,
		`DELETE FROM allocations`,
		`INSERT INTO allocations (allocation_id, position, payload) VALUES (?, ?, ?)`)
}

// Path returns the configured database path.
func (s *SQLiteAllocationStore) Path() string { return s.path }

func (s *SQLiteAllocationStore) Close() error { return s.db.Close() }

// loadRows reads payload rows in order and decodes them.
func loadRows(ctx context.Context, db *sql.DB, query string) ([]domain.Allocation, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("select allocations", err)
	}
	defer func() { _ = rows.Close() }()

	allocations := []domain.Allocation{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, unavailable("scan allocation", err)
		}
		a, err := DecodeAllocation(payload)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate allocations", err)
	}
	return allocations, nil
}

// replaceRows deletes every row and inserts the new set in one transaction.
func replaceRows(ctx context.Context, db *sql.DB, allocations []domain.Allocation, deleteSQL, insertSQL string) (retErr error) {
	payloads := make([][]byte, len(allocations))
	for i, a := range allocations {
		b, err := EncodeAllocation(a)
		if err != nil {
			return err
		}
		payloads[i] = b
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, deleteSQL); err != nil {
		return unavailable("clear allocations", err)
	}
	for i, a := range allocations {
		if _, err := tx.ExecContext(ctx, insertSQL, a.ID, i, payloads[i]); err != nil {
			return unavailable(fmt.Sprintf("insert allocation %s", a.ID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}
