package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencourse/problem-bank/internal/category"
)

// CategoryRepository persists the two-level category tree.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// ListAll returns every category, parents first for stable display.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category_id, name, description, parent_id
		FROM question_categories
		ORDER BY parent_id NULLS FIRST, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Insert stores a category and returns it with its generated ID.
func (r *CategoryRepository) Insert(ctx context.Context, c category.Category) (category.Category, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO question_categories (name, description, parent_id)
		VALUES ($1, $2, $3)
		RETURNING category_id`,
		c.Name, c.Description, c.ParentID,
	).Scan(&c.ID)
	return c, err
}

// DeleteAll clears the tree; children cascade with their parents.
func (r *CategoryRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM question_categories`)
	return err
}

// GetByID fetches one category.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (category.Category, error) {
	var c category.Category
	err := r.pool.QueryRow(ctx, `
		SELECT category_id, name, description, parent_id
		FROM question_categories
		WHERE category_id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ParentID)
	return c, err
}
