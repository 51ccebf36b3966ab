package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/store-catalog/internal/command"
	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// CreateCategoryRequest is the body of POST /categories.
type CreateCategoryRequest struct {
	ParentID    string                   `json:"parent_id"`
	Name        string                   `json:"name" validate:"required,min=1,max=120"`
	Slug        string                   `json:"slug" validate:"omitempty,max=120"`
	Description string                   `json:"description" validate:"max=2000"`
	IsActive    *bool                    `json:"is_active"`
	Attributes  []category.AttributeSpec `json:"attributes"`
}

// MoveCategoryRequest is the body of POST /categories/{id}/move.
type MoveCategoryRequest struct {
	ParentID *string `json:"parent_id"`
	Order    *int    `json:"order"`
}

// ReorderRequest is the body of POST /categories/reorder.
type ReorderRequest struct {
	Updates []category.ReorderUpdate `json:"updates" validate:"required,min=1,dive"`
}

func (h *Handlers) GetCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.queryHandler.Tree(r.Context(), tenantID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tree)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	views, err := h.queryHandler.List(r.Context(), tenantID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, err := h.cmdHandler.CreateCategory(r.Context(), command.CreateCategory{
		TenantID: tenantID(r),
		ParentID: req.ParentID,
		Spec: category.CreateSpec{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
			IsActive:    req.IsActive,
			Attributes:  req.Attributes,
		},
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, node)
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")
	view, err := h.queryHandler.Category(r.Context(), tenantID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) GetCategoryByPath(w http.ResponseWriter, r *http.Request) {
	slugPath := r.URL.Query().Get("slug")
	if slugPath == "" {
		respondJSONError(w, "Missing slug parameter", http.StatusBadRequest)
		return
	}
	view, err := h.queryHandler.CategoryBySlugPath(r.Context(), tenantID(r), slugPath)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")

	var spec category.UpdateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := h.cmdHandler.UpdateCategory(r.Context(), command.UpdateCategory{
		TenantID:   tenantID(r),
		CategoryID: id,
		Spec:       spec,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, node)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")

	cmd := command.DeleteCategory{
		TenantID:       tenantID(r),
		CategoryID:     id,
		Children:       category.ChildPolicy(r.URL.Query().Get("children")),
		MoveProductsTo: r.URL.Query().Get("move_products_to"),
	}
	if err := h.cmdHandler.DeleteCategory(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}

func (h *Handlers) MoveCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")
	id = strings.TrimSuffix(id, "/move")

	var req MoveCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.cmdHandler.MoveCategory(r.Context(), command.MoveCategory{
		TenantID:    tenantID(r),
		CategoryID:  id,
		NewParentID: req.ParentID,
		NewOrder:    req.Order,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Category moved"})
}

func (h *Handlers) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.cmdHandler.ReorderCategories(r.Context(), command.ReorderCategories{
		TenantID: tenantID(r),
		Updates:  req.Updates,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Categories reordered"})
}

func (h *Handlers) GetBreadcrumb(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")
	id = strings.TrimSuffix(id, "/breadcrumb")

	crumbs, err := h.queryHandler.Breadcrumb(r.Context(), tenantID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, crumbs)
}

func (h *Handlers) CheckLimits(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.CheckLimits(r.Context(), tenantID(r), r.URL.Query().Get("parent_id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) GetCategoryPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.queryHandler.Paths(r.Context(), tenantID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paths)
}

// GetStorefrontPaths serves the projected category paths for a public
// storefront. Inactive branches are filtered out.
func (h *Handlers) GetStorefrontPaths(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant_id")
	if tenant == "" {
		respondJSONError(w, "Missing tenant_id parameter", http.StatusBadRequest)
		return
	}

	paths, err := h.queryHandler.Paths(r.Context(), tenant)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	active := make([]store.CategoryPath, 0, len(paths))
	for _, p := range paths {
		if p.IsActive {
			active = append(active, p)
		}
	}
	respondJSON(w, http.StatusOK, active)
}

// Attribute handlers

func (h *Handlers) AddAttribute(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")
	id = strings.TrimSuffix(id, "/attributes")

	var spec category.AttributeSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	attr, err := h.cmdHandler.AddAttribute(r.Context(), command.AddAttribute{
		TenantID:   tenantID(r),
		CategoryID: id,
		Spec:       spec,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, attr)
}

func (h *Handlers) RemoveAttribute(w http.ResponseWriter, r *http.Request) {
	rest := extractPathParam(r.URL.Path, "/categories/")
	// {id}/attributes/{attributeID}
	parts := strings.SplitN(rest, "/attributes/", 2)
	if len(parts) != 2 || parts[1] == "" {
		respondJSONError(w, "Missing attribute id", http.StatusBadRequest)
		return
	}

	err := h.cmdHandler.RemoveAttribute(r.Context(), command.RemoveAttribute{
		TenantID:    tenantID(r),
		CategoryID:  parts[0],
		AttributeID: parts[1],
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Attribute removed"})
}

func (h *Handlers) ReorderAttributes(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")
	id = strings.TrimSuffix(id, "/attributes/order")

	var req struct {
		AttributeIDs []string `json:"attribute_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.cmdHandler.ReorderAttributes(r.Context(), command.ReorderAttributes{
		TenantID:     tenantID(r),
		CategoryID:   id,
		AttributeIDs: req.AttributeIDs,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Attributes reordered"})
}
