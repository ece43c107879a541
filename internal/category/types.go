package category

import (
	"github.com/google/uuid"
)

// Category is a node in the two-level category tree. Top-level categories
// (groups) have no parent; every other category points at a top-level one.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
}

// IsTopLevel reports whether the category is a group (has no parent).
func (c Category) IsTopLevel() bool {
	return c.ParentID == nil
}

// ClusterImport is the bulk-import document: group name -> subcategory names.
type ClusterImport map[string][]string
