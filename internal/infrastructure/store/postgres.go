package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/store-catalog/internal/domain/category"
	_ "github.com/lib/pq"
)

// PostgresStore implements CatalogStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed catalog store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the service's tables when missing. product_refs mirrors
// the product backend's category references; this service only ever reads it.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalog_nodes (
			tenant_id   TEXT NOT NULL,
			id          TEXT NOT NULL,
			parent_id   TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL,
			slug        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			level       INT NOT NULL,
			sort_order  INT NOT NULL,
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			attributes  JSONB NOT NULL DEFAULT '[]',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS tenant_plans (
			tenant_id      TEXT PRIMARY KEY,
			max_categories INT NOT NULL DEFAULT 0,
			max_depth      INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS owners (
			id            TEXT PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'owner',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_refs (
			tenant_id   TEXT NOT NULL,
			category_id TEXT NOT NULL,
			product_id  TEXT NOT NULL,
			PRIMARY KEY (tenant_id, category_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS read_category_paths (
			tenant_id   TEXT NOT NULL,
			category_id TEXT NOT NULL,
			name_path   TEXT NOT NULL,
			slug_path   TEXT NOT NULL,
			level       INT NOT NULL,
			is_active   BOOLEAN NOT NULL,
			PRIMARY KEY (tenant_id, category_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadNodes returns the tenant's flat node records, parents-first.
func (s *PostgresStore) LoadNodes(ctx context.Context, tenantID string) ([]*category.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, slug, description, level, sort_order, is_active, attributes, created_at, updated_at
		 FROM catalog_nodes
		 WHERE tenant_id = $1
		 ORDER BY level, sort_order`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("load nodes for %s: %w", tenantID, err)
	}
	defer rows.Close()

	var nodes []*category.Node
	for rows.Next() {
		var n category.Node
		var attrs []byte
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Name, &n.Slug, &n.Description,
			&n.Level, &n.Order, &n.IsActive, &attrs, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes of node %s: %w", n.ID, err)
			}
		}
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}

// SaveNodes replaces the tenant's node records in one transaction so readers
// never observe a half-written tree.
func (s *PostgresStore) SaveNodes(ctx context.Context, tenantID string, nodes []*category.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_nodes WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("clear nodes for %s: %w", tenantID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_nodes
		 (tenant_id, id, parent_id, name, slug, description, level, sort_order, is_active, attributes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		attrs, err := json.Marshal(n.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes of node %s: %w", n.ID, err)
		}
		if n.Attributes == nil {
			attrs = []byte("[]")
		}
		if _, err := stmt.ExecContext(ctx, tenantID, n.ID, n.ParentID, n.Name, n.Slug,
			n.Description, n.Level, n.Order, n.IsActive, attrs, n.CreatedAt, n.UpdatedAt); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// PlanLimits returns the tenant's plan limits; tenants without a plan row get
// the defaults (unlimited count, full depth).
func (s *PostgresStore) PlanLimits(ctx context.Context, tenantID string) (category.Limits, error) {
	var limits category.Limits
	err := s.db.QueryRowContext(ctx,
		`SELECT max_categories, max_depth FROM tenant_plans WHERE tenant_id = $1`,
		tenantID,
	).Scan(&limits.MaxCategories, &limits.MaxDepth)
	if err == sql.ErrNoRows {
		return category.Limits{}, nil
	}
	return limits, err
}

// ProductRefCount reads the product backend's reference table.
func (s *PostgresStore) ProductRefCount(ctx context.Context, tenantID, categoryID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM product_refs WHERE tenant_id = $1 AND category_id = $2`,
		tenantID, categoryID,
	).Scan(&count)
	return count, err
}

// CreateOwner stores a new owner account.
func (s *PostgresStore) CreateOwner(ctx context.Context, owner *Owner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO owners (id, tenant_id, email, password_hash, role, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email) DO NOTHING`,
		owner.ID, owner.TenantID, owner.Email, owner.PasswordHash, owner.Role, owner.IsActive, owner.CreatedAt)
	if err != nil {
		return err
	}
	// ON CONFLICT swallows duplicates; verify the row is ours.
	existing, err := s.OwnerByEmail(ctx, owner.Email)
	if err != nil {
		return err
	}
	if existing.ID != owner.ID {
		return ErrOwnerExists
	}
	return nil
}

// OwnerByEmail looks up an owner account.
func (s *PostgresStore) OwnerByEmail(ctx context.Context, email string) (*Owner, error) {
	var o Owner
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, email, password_hash, role, is_active, created_at
		 FROM owners WHERE email = $1`,
		email,
	).Scan(&o.ID, &o.TenantID, &o.Email, &o.PasswordHash, &o.Role, &o.IsActive, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OwnerByID looks up an owner account by id.
func (s *PostgresStore) OwnerByID(ctx context.Context, id string) (*Owner, error) {
	var o Owner
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, email, password_hash, role, is_active, created_at
		 FROM owners WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.TenantID, &o.Email, &o.PasswordHash, &o.Role, &o.IsActive, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ReplaceCategoryPaths rewrites the tenant's breadcrumb read model.
func (s *PostgresStore) ReplaceCategoryPaths(ctx context.Context, tenantID string, paths []CategoryPath) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM read_category_paths WHERE tenant_id = $1`, tenantID); err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO read_category_paths (tenant_id, category_id, name_path, slug_path, level, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			tenantID, p.CategoryID, p.NamePath, p.SlugPath, p.Level, p.IsActive); err != nil {
			return fmt.Errorf("insert path for %s: %w", p.CategoryID, err)
		}
	}
	return tx.Commit()
}

// CategoryPaths returns the tenant's breadcrumb rows, shallowest first.
func (s *PostgresStore) CategoryPaths(ctx context.Context, tenantID string) ([]CategoryPath, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, category_id, name_path, slug_path, level, is_active
		 FROM read_category_paths WHERE tenant_id = $1 ORDER BY level, slug_path`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []CategoryPath
	for rows.Next() {
		var p CategoryPath
		if err := rows.Scan(&p.TenantID, &p.CategoryID, &p.NamePath, &p.SlugPath, &p.Level, &p.IsActive); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
