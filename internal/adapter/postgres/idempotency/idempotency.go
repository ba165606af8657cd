package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidempotency "github.com/alanyang/lead-router/internal/port/idempotency"
)

var _ portidempotency.Store = (*Repository)(nil)

// Repository persists finished bulk operations in processed_operations.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Check returns the caller, operation type and result recorded for key.
func (r *Repository) Check(ctx context.Context, key string) (portidempotency.Record, bool, error) {
	const q = `
		SELECT caller, operation_type, result_jsonb
		FROM processed_operations
		WHERE idempotency_key = $1`

	var rec portidempotency.Record
	switch err := r.pool.QueryRow(ctx, q, key).Scan(&rec.Caller, &rec.OpType, &rec.Result); {
	case errors.Is(err, pgx.ErrNoRows):
		return portidempotency.Record{}, false, nil
	case err != nil:
		return portidempotency.Record{}, false, fmt.Errorf("look up operation %q: %w", key, err)
	}
	return rec, true, nil
}

// Store records a finished bulk operation. The first write for a key wins.
func (r *Repository) Store(ctx context.Context, key, caller, opType string, resultJSON []byte) error {
	query := `
		INSERT INTO processed_operations (idempotency_key, caller, operation_type, result_jsonb, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, key, caller, opType, resultJSON); err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}
