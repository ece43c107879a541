package category

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store defines the persistence operations the service needs.
type Store interface {
	ListAll(ctx context.Context) ([]Category, error)
	Insert(ctx context.Context, c Category) (Category, error)
	DeleteAll(ctx context.Context) error
}

// Service owns the category tree and the one-level filter semantics.
type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns every category.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.store.ListAll(ctx)
}

// Leaves returns only subcategories (categories with a parent). Token values
// are scoped to leaves, matching the token table layout.
func (s *Service) Leaves(ctx context.Context) ([]Category, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var leaves []Category
	for _, c := range all {
		if !c.IsTopLevel() {
			leaves = append(leaves, c)
		}
	}
	return leaves, nil
}

// Matches reports whether a question in category questionCat is included when
// filtering by filterCat: a direct hit, or the question's category is a child
// of the filter category. Traversal is exactly one level deep.
func Matches(filterCat uuid.UUID, questionCat *Category) bool {
	if questionCat == nil {
		return false
	}
	if questionCat.ID == filterCat {
		return true
	}
	return questionCat.ParentID != nil && *questionCat.ParentID == filterCat
}

// ImportClusters wipes the category table and recreates it from the import
// document. Re-running the import never accumulates duplicates.
func (s *Service) ImportClusters(ctx context.Context, doc ClusterImport) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	for group, subs := range doc {
		parent, err := s.store.Insert(ctx, Category{
			Name:        group,
			Description: group,
		})
		if err != nil {
			return fmt.Errorf("insert group %q: %w", group, err)
		}
		for _, sub := range subs {
			parentID := parent.ID
			if _, err := s.store.Insert(ctx, Category{
				Name:        sub,
				Description: sub,
				ParentID:    &parentID,
			}); err != nil {
				return fmt.Errorf("insert subcategory %q: %w", sub, err)
			}
		}
		s.logger.Info().Str("group", group).Int("subcategories", len(subs)).Msg("category cluster imported")
	}
	return nil
}
