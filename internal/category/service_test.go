package category

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type memoryCategoryStore struct {
	categories []Category
	deletes    int
}

func (m *memoryCategoryStore) ListAll(_ context.Context) ([]Category, error) {
	return m.categories, nil
}

func (m *memoryCategoryStore) Insert(_ context.Context, c Category) (Category, error) {
	c.ID = uuid.New()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memoryCategoryStore) DeleteAll(_ context.Context) error {
	m.deletes++
	m.categories = nil
	return nil
}

func TestImportClustersRebuildsTree(t *testing.T) {
	store := &memoryCategoryStore{}
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	doc := ClusterImport{
		"Java Basics": {"Loops", "Operators"},
	}
	assert.NoError(t, svc.ImportClusters(ctx, doc))
	assert.Len(t, store.categories, 3)

	// Re-running replaces rather than accumulates.
	assert.NoError(t, svc.ImportClusters(ctx, doc))
	assert.Len(t, store.categories, 3)
	assert.Equal(t, 2, store.deletes)

	var parents, children int
	for _, c := range store.categories {
		if c.IsTopLevel() {
			parents++
		} else {
			children++
		}
	}
	assert.Equal(t, 1, parents)
	assert.Equal(t, 2, children)
}

func TestLeavesExcludesTopLevel(t *testing.T) {
	parentID := uuid.New()
	store := &memoryCategoryStore{categories: []Category{
		{ID: parentID, Name: "Java Basics"},
		{ID: uuid.New(), Name: "Loops", ParentID: &parentID},
	}}
	svc := NewService(store, zerolog.Nop())

	leaves, err := svc.Leaves(context.Background())
	assert.NoError(t, err)
	assert.Len(t, leaves, 1)
	assert.Equal(t, "Loops", leaves[0].Name)
}

func TestMatchesOneLevel(t *testing.T) {
	grandparent := uuid.New()
	parent := Category{ID: uuid.New(), Name: "Java Basics", ParentID: &grandparent}
	child := Category{ID: uuid.New(), Name: "Loops", ParentID: &parent.ID}

	assert.True(t, Matches(child.ID, &child))
	assert.True(t, Matches(parent.ID, &child))
	// No transitive traversal beyond one level.
	assert.False(t, Matches(grandparent, &child))
	assert.False(t, Matches(uuid.New(), &child))
	assert.False(t, Matches(parent.ID, nil))
}
