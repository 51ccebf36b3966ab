package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/store-catalog/internal/domain/category"
)

var (
	ErrOwnerExists   = errors.New("owner already registered")
	ErrOwnerNotFound = errors.New("owner not found")
)

// Owner is a store-owner account able to manage one tenant's catalog.
type Owner struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryPath is one row of the denormalized breadcrumb read model the
// projector maintains for storefront views.
type CategoryPath struct {
	TenantID   string `json:"tenant_id"`
	CategoryID string `json:"category_id"`
	NamePath   string `json:"name_path"` // "Electronics > Phones > Smartphones"
	SlugPath   string `json:"slug_path"` // "electronics/phones/smartphones"
	Level      int    `json:"level"`
	IsActive   bool   `json:"is_active"`
}

// CatalogStore is the persistence contract of the catalog service. A tenant's
// tree is stored as flat node records and must be reconstructible from them
// alone. ProductRefCount consults the product backend's data; the tree never
// computes it itself.
type CatalogStore interface {
	LoadNodes(ctx context.Context, tenantID string) ([]*category.Node, error)
	// SaveNodes transactionally replaces the tenant's node records.
	SaveNodes(ctx context.Context, tenantID string, nodes []*category.Node) error
	PlanLimits(ctx context.Context, tenantID string) (category.Limits, error)
	ProductRefCount(ctx context.Context, tenantID, categoryID string) (int, error)

	CreateOwner(ctx context.Context, owner *Owner) error
	OwnerByEmail(ctx context.Context, email string) (*Owner, error)
	OwnerByID(ctx context.Context, id string) (*Owner, error)

	ReplaceCategoryPaths(ctx context.Context, tenantID string, paths []CategoryPath) error
	CategoryPaths(ctx context.Context, tenantID string) ([]CategoryPath, error)
}
