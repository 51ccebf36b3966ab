package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/importer"
	"github.com/example/store-catalog/internal/infrastructure/store/mocks"
)

type mockPublisher struct {
	events []category.Envelope
	err    error
}

func (p *mockPublisher) Publish(_ context.Context, _ string, event any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event.(category.Envelope))
	return nil
}

func newTestHandler() (*Handler, *mocks.MockCatalogStore, *mockPublisher) {
	st := mocks.NewMockCatalogStore()
	pub := &mockPublisher{}
	return NewHandler(st, pub), st, pub
}

func TestHandler_CreateCategory(t *testing.T) {
	h, st, pub := newTestHandler()
	ctx := context.Background()

	node, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "shoes", node.Slug)
	assert.Equal(t, 0, node.Level)

	saved := st.SavedNodes("tenant-1")
	require.Len(t, saved, 1)
	assert.Equal(t, node.ID, saved[0].ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, category.EventCategoryCreated, pub.events[0].EventType)
	assert.Equal(t, "tenant-1", pub.events[0].TenantID)
}

func TestHandler_CreateCategory_DuplicateSlug(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	_, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.NoError(t, err)

	_, err = h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	var dup *category.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "shoes-2", dup.Suggested)

	// The failed command must not have persisted anything.
	assert.Len(t, st.SavedNodes("tenant-1"), 1)
}

func TestHandler_TenantsIsolated(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	for _, tenant := range []string{"tenant-1", "tenant-2"} {
		_, err := h.CreateCategory(ctx, CreateCategory{
			TenantID: tenant,
			Spec:     category.CreateSpec{Name: "Shoes"},
		})
		require.NoError(t, err, tenant)
	}
	assert.Len(t, st.SavedNodes("tenant-1"), 1)
	assert.Len(t, st.SavedNodes("tenant-2"), 1)
}

func TestHandler_DeleteCategory_BlockedByProductRefs(t *testing.T) {
	h, st, pub := newTestHandler()
	ctx := context.Background()

	node, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.NoError(t, err)
	st.SeedProductRefs("tenant-1", node.ID, 3)
	published := len(pub.events)

	err = h.DeleteCategory(ctx, DeleteCategory{TenantID: "tenant-1", CategoryID: node.ID})
	var refErr *category.ReferentialIntegrityError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, 3, refErr.ProductCount)
	assert.Len(t, pub.events, published)
}

func TestHandler_DeleteCategory_CascadeCountsDescendantRefs(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	parent, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.NoError(t, err)
	child, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		ParentID: parent.ID,
		Spec:     category.CreateSpec{Name: "Sneakers"},
	})
	require.NoError(t, err)
	st.SeedProductRefs("tenant-1", child.ID, 2)

	err = h.DeleteCategory(ctx, DeleteCategory{
		TenantID:   "tenant-1",
		CategoryID: parent.ID,
		Children:   category.ChildPolicyCascade,
	})
	var refErr *category.ReferentialIntegrityError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, 2, refErr.ProductCount)
}

func TestHandler_MoveCategory(t *testing.T) {
	h, st, pub := newTestHandler()
	ctx := context.Background()

	a, err := h.CreateCategory(ctx, CreateCategory{TenantID: "tenant-1", Spec: category.CreateSpec{Name: "A"}})
	require.NoError(t, err)
	b, err := h.CreateCategory(ctx, CreateCategory{TenantID: "tenant-1", Spec: category.CreateSpec{Name: "B"}})
	require.NoError(t, err)

	err = h.MoveCategory(ctx, MoveCategory{
		TenantID:    "tenant-1",
		CategoryID:  b.ID,
		NewParentID: &a.ID,
	})
	require.NoError(t, err)

	var moved *category.Node
	for _, n := range st.SavedNodes("tenant-1") {
		if n.ID == b.ID {
			moved = n
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, a.ID, moved.ParentID)
	assert.Equal(t, 1, moved.Level)
	assert.Equal(t, category.EventCategoryMoved, pub.events[len(pub.events)-1].EventType)
}

func TestHandler_SaveFailure_DropsCachedTree(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	st.SaveErr = errors.New("connection reset")
	_, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.Error(t, err)

	// The failed create must not linger in the cache: the same slug is
	// free again once the store recovers.
	st.SaveErr = nil
	node, err := h.CreateCategory(ctx, CreateCategory{
		TenantID: "tenant-1",
		Spec:     category.CreateSpec{Name: "Shoes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "shoes", node.Slug)
}

func TestHandler_AttributeLifecycle(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	node, err := h.CreateCategory(ctx, CreateCategory{TenantID: "tenant-1", Spec: category.CreateSpec{Name: "Shoes"}})
	require.NoError(t, err)

	attr, err := h.AddAttribute(ctx, AddAttribute{
		TenantID:   "tenant-1",
		CategoryID: node.ID,
		Spec: category.AttributeSpec{
			Name:    "Size",
			Type:    category.TypeDropdown,
			Options: []category.AttributeOption{{Value: "S"}, {Value: "M"}, {Value: "L"}},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, attr.ID)

	saved := st.SavedNodes("tenant-1")
	require.Len(t, saved, 1)
	require.Len(t, saved[0].Attributes, 1)

	require.NoError(t, h.RemoveAttribute(ctx, RemoveAttribute{
		TenantID:    "tenant-1",
		CategoryID:  node.ID,
		AttributeID: attr.ID,
	}))
	assert.Empty(t, st.SavedNodes("tenant-1")[0].Attributes)
}

func TestHandler_Import(t *testing.T) {
	h, st, pub := newTestHandler()
	ctx := context.Background()

	result, err := h.Import(ctx, ImportCatalog{
		TenantID: "tenant-1",
		Rows: []importer.Row{
			{Line: 1, Name: "Shoes"},
			{Line: 2, Name: "Sneakers", ParentPath: []string{"Shoes"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedCategories)
	assert.Len(t, st.SavedNodes("tenant-1"), 2)
	assert.Equal(t, category.EventCatalogImported, pub.events[len(pub.events)-1].EventType)
}

func TestHandler_Import_AllOrNothingFailure(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	_, err := h.Import(ctx, ImportCatalog{
		TenantID: "tenant-1",
		Rows: []importer.Row{
			{Line: 1, Name: "Shoes"},
			{Line: 2, Name: "Shoes"},
		},
	})
	require.ErrorIs(t, err, importer.ErrRunFailed)
	assert.Empty(t, st.SavedNodes("tenant-1"))
}
