package category

import (
	"encoding/json"
	"time"
)

const (
	EventCategoryCreated     = "CategoryCreated"
	EventCategoryUpdated     = "CategoryUpdated"
	EventCategoryMoved       = "CategoryMoved"
	EventCategoryDeleted     = "CategoryDeleted"
	EventCategoriesReordered = "CategoriesReordered"
	EventCatalogImported     = "CatalogImported"
)

// Envelope wraps one catalog event for the change feed. Data holds the
// type-specific payload below.
type Envelope struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// CategoryCreatedEvent is emitted after a category is created.
type CategoryCreatedEvent struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ParentID   string    `json:"parent_id,omitempty"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

// CategoryUpdatedEvent is emitted after a category's fields change.
type CategoryUpdatedEvent struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ParentID   string    `json:"parent_id,omitempty"`
	Level      int       `json:"level"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryMovedEvent is emitted after a category is re-parented or
// re-ordered.
type CategoryMovedEvent struct {
	CategoryID string    `json:"category_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Level      int       `json:"level"`
	Order      int       `json:"order"`
	MovedAt    time.Time `json:"moved_at"`
}

// CategoryDeletedEvent is emitted after a category is deleted.
type CategoryDeletedEvent struct {
	CategoryID     string      `json:"category_id"`
	Children       ChildPolicy `json:"children,omitempty"`
	MoveProductsTo string      `json:"move_products_to,omitempty"`
	DeletedAt      time.Time   `json:"deleted_at"`
}

// CategoriesReorderedEvent is emitted after a batch reorder commits.
type CategoriesReorderedEvent struct {
	CategoryIDs []string  `json:"category_ids"`
	ReorderedAt time.Time `json:"reordered_at"`
}

// CatalogImportedEvent summarizes one committed import run.
type CatalogImportedEvent struct {
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	ImportedAt time.Time `json:"imported_at"`
}
