package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sekola/sekola-api/internal/scope"
)

// CounterRepository mints tenant-scoped monotonic sequence values.
type CounterRepository struct {
	db *sqlx.DB
}

// NewCounterRepository constructs the repository.
func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Next atomically increments and returns the counter for (tenant, key).
// The upsert executes as a single statement so concurrent callers can never
// observe the same value; correctness relies on the storage engine, not on
// any in-process state.
func (r *CounterRepository) Next(ctx context.Context, sc scope.Scope, key string) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	const query = `INSERT INTO counters (tenant_id, key, value) VALUES ($1, $2, 1)
	ON CONFLICT (tenant_id, key) DO UPDATE SET value = counters.value + 1
	RETURNING value`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, sc.TenantID, key); err != nil {
		return 0, fmt.Errorf("next counter value: %w", err)
	}
	return value, nil
}
