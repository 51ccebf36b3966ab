package command

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/importer"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// Publisher emits catalog change events keyed by tenant so that the
// feed preserves per-tenant ordering.
type Publisher interface {
	Publish(ctx context.Context, tenantID string, event any) error
}

// Handler executes catalog mutations. All operations for one tenant are
// serialized on a per-tenant lock, and the tenant's tree is cached
// between operations so only the first command pays the full load.
type Handler struct {
	store     store.CatalogStore
	publisher Publisher

	mu      sync.Mutex
	tenants map[string]*tenantState
}

type tenantState struct {
	mu   sync.Mutex
	tree *category.Tree
}

func NewHandler(st store.CatalogStore, pub Publisher) *Handler {
	return &Handler{
		store:     st,
		publisher: pub,
		tenants:   make(map[string]*tenantState),
	}
}

func (h *Handler) tenant(tenantID string) *tenantState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.tenants[tenantID]
	if !ok {
		st = &tenantState{}
		h.tenants[tenantID] = st
	}
	return st
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

// withTree runs one mutation under the tenant lock: load the cached
// tree (or build it from the store), apply fn, persist the full node
// set, then publish the change event. A persist failure drops the
// cached tree so the next command reloads the committed state.
func (h *Handler) withTree(ctx context.Context, tenantID string, fn func(tree *category.Tree) (eventType string, payload any, err error)) error {
	st := h.tenant(tenantID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.tree == nil {
		tree, err := h.loadTree(ctx, tenantID)
		if err != nil {
			return err
		}
		st.tree = tree
	}

	eventType, payload, err := fn(st.tree)
	if err != nil {
		return err
	}

	if err := h.store.SaveNodes(ctx, tenantID, st.tree.Records()); err != nil {
		st.tree = nil
		return err
	}

	h.publish(ctx, tenantID, eventType, payload)
	return nil
}

// publish is best effort: the mutation is already committed, and the
// read model can be rebuilt, so a feed failure is logged but does not
// fail the command.
func (h *Handler) publish(ctx context.Context, tenantID, eventType string, payload any) {
	if h.publisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Command] Failed to marshal %s event for tenant %s: %v", eventType, tenantID, err)
		return
	}
	envelope := category.Envelope{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, tenantID, envelope); err != nil {
		log.Printf("[Command] Failed to publish %s event for tenant %s: %v", eventType, tenantID, err)
	}
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (*category.Node, error) {
	var created *category.Node
	err := h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		node, err := tree.CreateCategory(cmd.ParentID, cmd.Spec)
		if err != nil {
			return "", nil, err
		}
		created = node
		return category.EventCategoryCreated, category.CategoryCreatedEvent{
			CategoryID: node.ID,
			Name:       node.Name,
			Slug:       node.Slug,
			ParentID:   node.ParentID,
			Level:      node.Level,
			CreatedAt:  node.CreatedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (h *Handler) UpdateCategory(ctx context.Context, cmd UpdateCategory) (*category.Node, error) {
	var updated *category.Node
	err := h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		node, err := tree.UpdateCategory(cmd.CategoryID, cmd.Spec)
		if err != nil {
			return "", nil, err
		}
		updated = node
		return category.EventCategoryUpdated, category.CategoryUpdatedEvent{
			CategoryID: node.ID,
			Name:       node.Name,
			Slug:       node.Slug,
			ParentID:   node.ParentID,
			Level:      node.Level,
			IsActive:   node.IsActive,
			UpdatedAt:  node.UpdatedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) error {
	return h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		refs, err := h.store.ProductRefCount(ctx, cmd.TenantID, cmd.CategoryID)
		if err != nil {
			return "", nil, err
		}
		if cmd.Children == category.ChildPolicyCascade {
			// A cascade deletes the whole subtree, so product references
			// anywhere below the node block the delete too.
			descendants, err := tree.Descendants(cmd.CategoryID, -1)
			if err != nil {
				return "", nil, err
			}
			for _, desc := range descendants {
				n, err := h.store.ProductRefCount(ctx, cmd.TenantID, desc.ID)
				if err != nil {
					return "", nil, err
				}
				refs += n
			}
		}
		opts := category.DeleteOptions{
			Children:       cmd.Children,
			MoveProductsTo: cmd.MoveProductsTo,
			ProductRefs:    refs,
		}
		if err := tree.DeleteCategory(cmd.CategoryID, opts); err != nil {
			return "", nil, err
		}
		return category.EventCategoryDeleted, category.CategoryDeletedEvent{
			CategoryID:     cmd.CategoryID,
			Children:       cmd.Children,
			MoveProductsTo: cmd.MoveProductsTo,
			DeletedAt:      time.Now().UTC(),
		}, nil
	})
}

func (h *Handler) MoveCategory(ctx context.Context, cmd MoveCategory) error {
	return h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		if err := tree.MoveCategory(cmd.CategoryID, cmd.NewParentID, cmd.NewOrder); err != nil {
			return "", nil, err
		}
		node, ok := tree.FindByID(cmd.CategoryID)
		if !ok {
			return "", nil, category.ErrNotFound
		}
		return category.EventCategoryMoved, category.CategoryMovedEvent{
			CategoryID: cmd.CategoryID,
			ParentID:   node.ParentID,
			Level:      node.Level,
			Order:      node.Order,
			MovedAt:    time.Now().UTC(),
		}, nil
	})
}

func (h *Handler) ReorderCategories(ctx context.Context, cmd ReorderCategories) error {
	return h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		if err := tree.ReorderCategories(cmd.Updates); err != nil {
			return "", nil, err
		}
		ids := make([]string, len(cmd.Updates))
		for i, u := range cmd.Updates {
			ids[i] = u.ID
		}
		return category.EventCategoriesReordered, category.CategoriesReorderedEvent{
			CategoryIDs: ids,
			ReorderedAt: time.Now().UTC(),
		}, nil
	})
}

func (h *Handler) AddAttribute(ctx context.Context, cmd AddAttribute) (*category.AttributeDefinition, error) {
	var added *category.AttributeDefinition
	err := h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		attr, err := tree.AddAttribute(cmd.CategoryID, cmd.Spec)
		if err != nil {
			return "", nil, err
		}
		added = attr
		return category.EventCategoryUpdated, category.CategoryUpdatedEvent{
			CategoryID: cmd.CategoryID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (h *Handler) RemoveAttribute(ctx context.Context, cmd RemoveAttribute) error {
	return h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		if err := tree.RemoveAttribute(cmd.CategoryID, cmd.AttributeID); err != nil {
			return "", nil, err
		}
		return category.EventCategoryUpdated, category.CategoryUpdatedEvent{
			CategoryID: cmd.CategoryID,
		}, nil
	})
}

func (h *Handler) ReorderAttributes(ctx context.Context, cmd ReorderAttributes) error {
	return h.withTree(ctx, cmd.TenantID, func(tree *category.Tree) (string, any, error) {
		if err := tree.ReorderAttributes(cmd.CategoryID, cmd.AttributeIDs); err != nil {
			return "", nil, err
		}
		return category.EventCategoryUpdated, category.CategoryUpdatedEvent{
			CategoryID: cmd.CategoryID,
		}, nil
	})
}

// Import runs a bulk import under the tenant lock. In skip-errors mode
// partially applied rows are persisted even when later rows fail, so
// the tree is saved whenever anything changed, regardless of the run
// outcome.
func (h *Handler) Import(ctx context.Context, cmd ImportCatalog) (*importer.Result, error) {
	st := h.tenant(cmd.TenantID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.tree == nil {
		tree, err := h.loadTree(ctx, cmd.TenantID)
		if err != nil {
			return nil, err
		}
		st.tree = tree
	}

	coord := importer.New()
	result, runErr := coord.Apply(ctx, st.tree, cmd.Rows, cmd.Options)

	if result != nil && result.CreatedCategories+result.UpdatedCategories > 0 {
		if err := h.store.SaveNodes(ctx, cmd.TenantID, st.tree.Records()); err != nil {
			st.tree = nil
			return result, err
		}
		h.publish(ctx, cmd.TenantID, category.EventCatalogImported, category.CatalogImportedEvent{
			Created:    result.CreatedCategories,
			Updated:    result.UpdatedCategories,
			Failed:     len(result.Errors),
			ImportedAt: time.Now().UTC(),
		})
	}
	return result, runErr
}
