package mocks

import (
	"context"
	"sync"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// MockCatalogStore is an in-memory CatalogStore for tests.
type MockCatalogStore struct {
	mu     sync.RWMutex
	nodes  map[string][]*category.Node // tenantID -> records
	plans  map[string]category.Limits
	refs   map[string]int // tenantID+"/"+categoryID -> product refs
	owners map[string]*store.Owner
	paths  map[string][]store.CategoryPath

	// For tracking calls and injecting failures in tests
	SaveCalls []string // tenant ids in call order
	LoadErr   error
	SaveErr   error
	PlanErr   error
	RefsErr   error
}

// NewMockCatalogStore creates an empty mock store.
func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{
		nodes:  make(map[string][]*category.Node),
		plans:  make(map[string]category.Limits),
		refs:   make(map[string]int),
		owners: make(map[string]*store.Owner),
		paths:  make(map[string][]store.CategoryPath),
	}
}

// SeedNodes preloads a tenant's records.
func (m *MockCatalogStore) SeedNodes(tenantID string, nodes []*category.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[tenantID] = nodes
}

// SeedPlan sets a tenant's plan limits.
func (m *MockCatalogStore) SeedPlan(tenantID string, limits category.Limits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[tenantID] = limits
}

// SeedProductRefs sets the product backend's reference count for a category.
func (m *MockCatalogStore) SeedProductRefs(tenantID, categoryID string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[tenantID+"/"+categoryID] = count
}

// SavedNodes returns the records last saved for a tenant.
func (m *MockCatalogStore) SavedNodes(tenantID string) []*category.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[tenantID]
}

func (m *MockCatalogStore) LoadNodes(_ context.Context, tenantID string) ([]*category.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.nodes[tenantID], nil
}

func (m *MockCatalogStore) SaveNodes(_ context.Context, tenantID string, nodes []*category.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls = append(m.SaveCalls, tenantID)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.nodes[tenantID] = nodes
	return nil
}

func (m *MockCatalogStore) PlanLimits(_ context.Context, tenantID string) (category.Limits, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.PlanErr != nil {
		return category.Limits{}, m.PlanErr
	}
	return m.plans[tenantID], nil
}

func (m *MockCatalogStore) ProductRefCount(_ context.Context, tenantID, categoryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.RefsErr != nil {
		return 0, m.RefsErr
	}
	return m.refs[tenantID+"/"+categoryID], nil
}

func (m *MockCatalogStore) CreateOwner(_ context.Context, owner *store.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.owners[owner.Email]; exists {
		return store.ErrOwnerExists
	}
	m.owners[owner.Email] = owner
	return nil
}

func (m *MockCatalogStore) OwnerByEmail(_ context.Context, email string) (*store.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[email]
	if !ok {
		return nil, store.ErrOwnerNotFound
	}
	return owner, nil
}

func (m *MockCatalogStore) OwnerByID(_ context.Context, id string) (*store.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, owner := range m.owners {
		if owner.ID == id {
			return owner, nil
		}
	}
	return nil, store.ErrOwnerNotFound
}

func (m *MockCatalogStore) ReplaceCategoryPaths(_ context.Context, tenantID string, paths []store.CategoryPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[tenantID] = paths
	return nil
}

func (m *MockCatalogStore) CategoryPaths(_ context.Context, tenantID string) ([]store.CategoryPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths[tenantID], nil
}
