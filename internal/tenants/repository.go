package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notevault/backend/internal/models"
)

const tenantColumns = `id, slug, name, plan, note_quota, is_active, created_at, updated_at`

// Repository handles tenant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tenant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a tenant by id, or (nil, nil) when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanTenant(r.pool.QueryRow(ctx, q, id))
}

// GetBySlug returns a tenant by slug, or (nil, nil).
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return r.scanTenant(r.pool.QueryRow(ctx, q, slug))
}

// Create inserts a new tenant (provisioning only). Slug uniqueness is
// enforced by the database.
func (r *Repository) Create(ctx context.Context, t *models.Tenant) error {
	const q = `INSERT INTO tenants (slug, name, plan, note_quota, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.Slug, t.Name, string(t.Plan), t.NoteQuota, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateName changes the tenant's display name. The slug is immutable.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Tenant, error) {
	const q = `UPDATE tenants SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + tenantColumns
	return r.scanTenant(r.pool.QueryRow(ctx, q, id, name))
}

// Upgrade moves the tenant to the pro plan with unlimited quota. Idempotent:
// upgrading an already-pro tenant rewrites the same state and returns it.
func (r *Repository) Upgrade(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const q = `UPDATE tenants SET plan = 'pro', note_quota = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tenantColumns
	return r.scanTenant(r.pool.QueryRow(ctx, q, id, models.UnlimitedQuota))
}

func (r *Repository) scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Plan, &t.NoteQuota, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
