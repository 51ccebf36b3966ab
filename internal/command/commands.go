package command

import (
	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/importer"
)

// Commands carry tenant scope plus the domain payload for one mutation.

type CreateCategory struct {
	TenantID string              `json:"tenantId"`
	ParentID string              `json:"parentId"`
	Spec     category.CreateSpec `json:"spec"`
}

type UpdateCategory struct {
	TenantID   string              `json:"tenantId"`
	CategoryID string              `json:"categoryId"`
	Spec       category.UpdateSpec `json:"spec"`
}

type DeleteCategory struct {
	TenantID       string               `json:"tenantId"`
	CategoryID     string               `json:"categoryId"`
	Children       category.ChildPolicy `json:"children"`
	MoveProductsTo string               `json:"moveProductsTo,omitempty"`
}

type MoveCategory struct {
	TenantID    string  `json:"tenantId"`
	CategoryID  string  `json:"categoryId"`
	NewParentID *string `json:"newParentId"`
	NewOrder    *int    `json:"newOrder"`
}

type ReorderCategories struct {
	TenantID string                   `json:"tenantId"`
	Updates  []category.ReorderUpdate `json:"updates"`
}

type AddAttribute struct {
	TenantID   string                 `json:"tenantId"`
	CategoryID string                 `json:"categoryId"`
	Spec       category.AttributeSpec `json:"spec"`
}

type RemoveAttribute struct {
	TenantID    string `json:"tenantId"`
	CategoryID  string `json:"categoryId"`
	AttributeID string `json:"attributeId"`
}

type ReorderAttributes struct {
	TenantID     string   `json:"tenantId"`
	CategoryID   string   `json:"categoryId"`
	AttributeIDs []string `json:"attributeIds"`
}

type ImportCatalog struct {
	TenantID string           `json:"tenantId"`
	Rows     []importer.Row   `json:"rows"`
	Options  importer.Options `json:"options"`
}
