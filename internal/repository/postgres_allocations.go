package repository

import (
	"context"
	"database/sql"

	"davinci-allocation/internal/domain"

	"go.uber.org/zap"
)

// PostgresAllocationStore stores one JSONB row per allocation in the allocations table.
type PostgresAllocationStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAllocationStore(db *sql.DB, logger *zap.Logger) *PostgresAllocationStore {
	return &PostgresAllocationStore{db: db, logger: logger}
}

// EnsureSchema creates the allocations table if it does not exist.
func (s *PostgresAllocationStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS allocations (
		allocation_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		payload JSONB NOT NULL
	)`)
	if err != nil {
		return unavailable("create allocations table", err)
	}
	return nil
}

func (s *PostgresAllocationStore) LoadAll(ctx context.Context) ([]domain.Allocation, error) {
	return loadRows(ctx, s.db, `SELECT payload FROM allocations ORDER BY position`)
}

func (s *PostgresAllocationStore) SaveAll(ctx context.Context, allocations []domain.Allocation) error {
	err := replaceRows(ctx, s.db, allocations,
		`DELETE FROM allocations`,
		`INSERT INTO allocations (allocation_id, position, payload) VALUES ($1, $2, $3)`)
	if err != nil {
		s.logger.Error("Failed to save allocations", zap.Int("count", len(allocations)), zap.Error(err))
		return err
	}
	return nil
}
