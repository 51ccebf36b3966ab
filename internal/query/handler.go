package query

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/importer"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// Handler serves read-side queries. Each call builds the tenant's tree
// from the store; queries never mutate it.
type Handler struct {
	store store.CatalogStore
}

func NewHandler(st store.CatalogStore) *Handler {
	return &Handler{store: st}
}

func (h *Handler) loadTree(ctx context.Context, tenantID string) (*category.Tree, error) {
	limits, err := h.store.PlanLimits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	nodes, err := h.store.LoadNodes(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return category.BuildTree(tenantID, limits, nodes)
}

// Tree returns the tenant's full catalog as nested views, roots first.
func (h *Handler) Tree(ctx context.Context, tenantID string) ([]*CategoryView, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return h.subtrees(tree, ""), nil
}

func (h *Handler) subtrees(tree *category.Tree, parentID string) []*CategoryView {
	children, err := tree.Children(parentID)
	if err != nil {
		return nil
	}
	views := make([]*CategoryView, 0, len(children))
	for _, child := range children {
		view := viewOf(child)
		view.Children = h.subtrees(tree, child.ID)
		views = append(views, view)
	}
	return views
}

// Category returns one category with its direct children.
func (h *Handler) Category(ctx context.Context, tenantID, categoryID string) (*CategoryView, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	node, ok := tree.FindByID(categoryID)
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, category.ErrNotFound)
	}
	view := viewOf(node)
	children, err := tree.Children(categoryID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		view.Children = append(view.Children, viewOf(child))
	}
	return view, nil
}

// CategoryBySlugPath resolves a path like "shoes/sneakers" segment by
// segment from the roots down.
func (h *Handler) CategoryBySlugPath(ctx context.Context, tenantID, slugPath string) (*CategoryView, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	segments := strings.Split(strings.Trim(slugPath, "/"), "/")
	parentID := ""
	var node *category.Node
	for _, segment := range segments {
		children, err := tree.Children(parentID)
		if err != nil {
			return nil, err
		}
		node = nil
		for _, child := range children {
			if child.Slug == segment {
				node = child
				break
			}
		}
		if node == nil {
			return nil, fmt.Errorf("path %s: %w", slugPath, category.ErrNotFound)
		}
		parentID = node.ID
	}
	return h.Category(ctx, tenantID, node.ID)
}

// Breadcrumb returns the root-to-node path for navigation headers.
func (h *Handler) Breadcrumb(ctx context.Context, tenantID, categoryID string) ([]BreadcrumbEntry, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	path, err := tree.Path(categoryID)
	if err != nil {
		return nil, err
	}
	entries := make([]BreadcrumbEntry, len(path))
	for i, node := range path {
		entries[i] = BreadcrumbEntry{ID: node.ID, Name: node.Name, Slug: node.Slug, Level: node.Level}
	}
	return entries, nil
}

// List returns every category as a flat depth-first slice.
func (h *Handler) List(ctx context.Context, tenantID string) ([]*CategoryView, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var views []*CategoryView
	for node := range tree.Flatten() {
		views = append(views, viewOf(node))
	}
	return views, nil
}

// CheckLimits reports whether another category fits under parentID
// ("" = root) before any form is submitted.
func (h *Handler) CheckLimits(ctx context.Context, tenantID, parentID string) (*LimitsView, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	limits := tree.Limits()
	view := &LimitsView{
		MaxCategories: limits.MaxCategories,
		MaxDepth:      limits.MaxDepth,
		Used:          tree.Len(),
		CanAdd:        true,
	}
	if err := tree.ValidateLimits(parentID); err != nil {
		view.CanAdd = false
		view.Reason = err.Error()
	}
	return view, nil
}

// Export streams the tenant's catalog as CSV.
func (h *Handler) Export(ctx context.Context, tenantID string, w io.Writer) error {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return err
	}
	return importer.New().Export(tree, importer.NewCSVWriter(w))
}

// ValidateImport dry-runs an import against the current tree and
// reports per-row issues without changing anything.
func (h *Handler) ValidateImport(ctx context.Context, tenantID string, rows []importer.Row, opts importer.Options) (*importer.ValidationResult, error) {
	tree, err := h.loadTree(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return importer.New().Validate(tree, rows, opts), nil
}

// Paths returns the projected breadcrumb read model maintained by the
// projector, without touching the node table.
func (h *Handler) Paths(ctx context.Context, tenantID string) ([]store.CategoryPath, error) {
	return h.store.CategoryPaths(ctx, tenantID)
}
