package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenValueRepository persists the per-(category, difficulty) reward table.
// The table carries UNIQUE NULLS NOT DISTINCT (category_id, difficulty), so
// the upsert below is the entire concurrency story: no read-then-write.
type TokenValueRepository struct {
	pool *pgxpool.Pool
}

func NewTokenValueRepository(pool *pgxpool.Pool) *TokenValueRepository {
	return &TokenValueRepository{pool: pool}
}

// Upsert returns the stored value for the pair, inserting defaultValue when
// the pair is first seen. The no-op DO UPDATE keeps RETURNING populated on
// conflict without changing an existing value.
func (r *TokenValueRepository) Upsert(ctx context.Context, categoryID *uuid.UUID, difficulty string, defaultValue int) (int, error) {
	var value int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO token_values (category_id, difficulty, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (category_id, difficulty)
		DO UPDATE SET value = token_values.value
		RETURNING value`,
		categoryID, difficulty, defaultValue,
	).Scan(&value)
	return value, err
}

// Set overwrites the value for the pair, creating it if missing.
func (r *TokenValueRepository) Set(ctx context.Context, categoryID *uuid.UUID, difficulty string, value int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO token_values (category_id, difficulty, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (category_id, difficulty)
		DO UPDATE SET value = EXCLUDED.value`,
		categoryID, difficulty, value,
	)
	return err
}
