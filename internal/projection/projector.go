package projection

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// Projector maintains the denormalized breadcrumb table
// (read_category_paths) that storefronts read for navigation and URLs.
// Every catalog event triggers a full rebuild of the tenant's paths:
// the trees are small and a rebuild is idempotent, so replaying the
// feed from any offset converges to the same state.
type Projector struct {
	store store.CatalogStore
}

func NewProjector(st store.CatalogStore) *Projector {
	return &Projector{store: st}
}

// HandleEvent is the feed consumer callback.
func (p *Projector) HandleEvent(ctx context.Context, _, value []byte) error {
	var envelope category.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return err
	}
	if envelope.TenantID == "" {
		log.Printf("[Projector] Skipping event %s without tenant", envelope.ID)
		return nil
	}

	log.Printf("[Projector] Received event: %s (tenant: %s)", envelope.EventType, envelope.TenantID)
	return p.Rebuild(ctx, envelope.TenantID)
}

// Rebuild recomputes every category path for one tenant from the node
// table and swaps the read model in a single transaction.
func (p *Projector) Rebuild(ctx context.Context, tenantID string) error {
	limits, err := p.store.PlanLimits(ctx, tenantID)
	if err != nil {
		return err
	}
	nodes, err := p.store.LoadNodes(ctx, tenantID)
	if err != nil {
		return err
	}
	tree, err := category.BuildTree(tenantID, limits, nodes)
	if err != nil {
		return err
	}

	var paths []store.CategoryPath
	for node := range tree.Flatten() {
		chain, err := tree.Path(node.ID)
		if err != nil {
			return err
		}
		names := make([]string, len(chain))
		slugs := make([]string, len(chain))
		active := true
		for i, ancestor := range chain {
			names[i] = ancestor.Name
			slugs[i] = ancestor.Slug
			if !ancestor.IsActive {
				active = false
			}
		}
		paths = append(paths, store.CategoryPath{
			TenantID:   tenantID,
			CategoryID: node.ID,
			NamePath:   strings.Join(names, " > "),
			SlugPath:   strings.Join(slugs, "/"),
			Level:      node.Level,
			IsActive:   active,
		})
	}

	return p.store.ReplaceCategoryPaths(ctx, tenantID, paths)
}
