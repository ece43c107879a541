package token

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/category"
	"github.com/opencourse/problem-bank/internal/question"
)

// Difficulties spans the token table columns, in display order.
var Difficulties = []string{
	string(question.DifficultyEasy),
	string(question.DifficultyMedium),
	string(question.DifficultyHard),
}

// Store defines the persistence operations the service needs. Upsert must be
// a single atomic statement backed by the (category, difficulty) uniqueness
// constraint: concurrent first lookups of a missing pair create exactly one
// row.
type Store interface {
	Upsert(ctx context.Context, categoryID *uuid.UUID, difficulty string, defaultValue int) (int, error)
	Set(ctx context.Context, categoryID *uuid.UUID, difficulty string, value int) error
}

// leafLister yields the subcategories the token table is scoped to.
type leafLister interface {
	Leaves(ctx context.Context) ([]category.Category, error)
}

// ServiceOptions configures lazy-materialization defaults.
type ServiceOptions struct {
	DefaultValue int
}

// Service owns the per-(category, difficulty) reward table.
type Service struct {
	store      Store
	categories leafLister
	opts       ServiceOptions
	logger     zerolog.Logger
}

func NewService(store Store, categories leafLister, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{store: store, categories: categories, opts: opts, logger: logger}
}

// Value returns the reward for (category, difficulty), creating the row with
// the configured default on first access. Idempotent under concurrency.
func (s *Service) Value(ctx context.Context, categoryID *uuid.UUID, difficulty string) (int, error) {
	return s.store.Upsert(ctx, categoryID, difficulty, s.opts.DefaultValue)
}

// TableRow is one category's reward values, ordered as Difficulties.
type TableRow struct {
	Category category.Category `json:"category"`
	Values   []int             `json:"values"`
}

// Table returns the full reward table over leaf categories, materializing any
// missing cells along the way.
func (s *Service) Table(ctx context.Context) ([]TableRow, error) {
	leaves, err := s.categories.Leaves(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]TableRow, 0, len(leaves))
	for _, leaf := range leaves {
		row := TableRow{Category: leaf, Values: make([]int, 0, len(Difficulties))}
		leafID := leaf.ID
		for _, difficulty := range Difficulties {
			value, err := s.store.Upsert(ctx, &leafID, difficulty, s.opts.DefaultValue)
			if err != nil {
				return nil, err
			}
			row.Values = append(row.Values, value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CellUpdate sets one reward value. Teacher-only, enforced at the boundary.
type CellUpdate struct {
	CategoryID uuid.UUID `json:"category_id"`
	Difficulty string    `json:"difficulty"`
	Value      int       `json:"value"`
}

// UpdateTable applies bulk edits to the reward table.
func (s *Service) UpdateTable(ctx context.Context, updates []CellUpdate) error {
	for _, u := range updates {
		catID := u.CategoryID
		if err := s.store.Set(ctx, &catID, u.Difficulty, u.Value); err != nil {
			return err
		}
	}
	s.logger.Info().Int("cells", len(updates)).Msg("token values updated")
	return nil
}
