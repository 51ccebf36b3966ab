package query

import "github.com/example/store-catalog/internal/domain/category"

// CategoryView is the read-side shape of one category, with its children
// nested for tree rendering.
type CategoryView struct {
	ID          string                          `json:"id"`
	Name        string                          `json:"name"`
	Slug        string                          `json:"slug"`
	Description string                          `json:"description,omitempty"`
	ParentID    string                          `json:"parent_id,omitempty"`
	Level       int                             `json:"level"`
	Order       int                             `json:"order"`
	IsActive    bool                            `json:"is_active"`
	Attributes  []*category.AttributeDefinition `json:"attributes,omitempty"`
	Children    []*CategoryView                 `json:"children,omitempty"`
}

// BreadcrumbEntry is one step of a root-to-node path.
type BreadcrumbEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Level int    `json:"level"`
}

// LimitsView reports whether another category fits under a parent, for
// disabling "add" actions in the UI before the user types anything.
type LimitsView struct {
	MaxCategories int    `json:"max_categories"`
	MaxDepth      int    `json:"max_depth"`
	Used          int    `json:"used"`
	CanAdd        bool   `json:"can_add"`
	Reason        string `json:"reason,omitempty"`
}

func viewOf(node *category.Node) *CategoryView {
	return &CategoryView{
		ID:          node.ID,
		Name:        node.Name,
		Slug:        node.Slug,
		Description: node.Description,
		ParentID:    node.ParentID,
		Level:       node.Level,
		Order:       node.Order,
		IsActive:    node.IsActive,
		Attributes:  node.Attributes,
	}
}
