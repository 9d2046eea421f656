package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore keeps counters in the sequence_counters table. The increment
// is one atomic statement (insert-or-increment with RETURNING), so concurrency
// is resolved by the database's row lock, never by application-level
// read-then-write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Increment(ctx context.Context, key Key) (int64, error) {
	const query = `
		INSERT INTO sequence_counters (tenant_id, seq_type, period, value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, seq_type, period)
		DO UPDATE SET value = sequence_counters.value + 1, updated_at = now()
		RETURNING value
	`
	var value int64
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(key.TenantID), key.Type, string(key.Period)).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Current(ctx context.Context, key Key) (int64, error) {
	const query = `
		SELECT value FROM sequence_counters
		WHERE tenant_id = $1 AND seq_type = $2 AND period = $3
	`
	var value int64
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(key.TenantID), key.Type, string(key.Period)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Reset(ctx context.Context, key Key, value int64) error {
	const query = `
		INSERT INTO sequence_counters (tenant_id, seq_type, period, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, seq_type, period)
		DO UPDATE SET value = $4, updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(key.TenantID), key.Type, string(key.Period), value)
	if err != nil {
		return fmt.Errorf("reset sequence %s: %w", key, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
