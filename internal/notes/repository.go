package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notevault/backend/internal/models"
)

const noteColumns = `id, tenant_id, user_id, title, content, tags, archived, deleted, created_at, updated_at`

// Repository handles note persistence. Every query is filtered by tenant id
// and excludes soft-deleted rows; the optional owner filter narrows reads and
// writes to a single user's notes for member-scoped access.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a note repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a note. Tenant and owner come from n, which the service
// stamps from verified identity parameters only.
func (r *Repository) Create(ctx context.Context, n *models.Note) error {
	const q = `INSERT INTO notes (tenant_id, user_id, title, content, tags, archived)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, n.TenantID, n.UserID, n.Title, n.Content, n.Tags, n.Archived).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// List returns a page of the tenant's non-deleted notes plus the total match
// count. Ordered newest first, id as tie-break for deterministic pagination.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]models.Note, int, error) {
	where := `WHERE tenant_id = $1 AND NOT deleted`
	args := []interface{}{tenantID}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Archived != nil {
		args = append(args, *f.Archived)
		where += fmt.Sprintf(" AND archived = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (title ILIKE $%d OR content ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) tag WHERE tag ILIKE $%d))", n, n, n)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	q := fmt.Sprintf(`SELECT %s FROM notes %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		noteColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Title, &n.Content, &n.Tags,
			&n.Archived, &n.Deleted, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, n)
	}
	return list, total, rows.Err()
}

// Get returns the tenant's note by id, or (nil, nil) when it does not exist,
// is deleted, belongs to another tenant, or (when ownerID is set) to another
// owner. All those cases are indistinguishable to the caller.
func (r *Repository) Get(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (*models.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND tenant_id = $2 AND NOT deleted`
	args := []interface{}{noteID, tenantID}
	if ownerID != nil {
		args = append(args, *ownerID)
		q += ` AND user_id = $3`
	}
	var n models.Note
	err := r.pool.QueryRow(ctx, q, args...).Scan(&n.ID, &n.TenantID, &n.UserID, &n.Title, &n.Content,
		&n.Tags, &n.Archived, &n.Deleted, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Update applies a partial patch under the same scoping as Get. Returns
// (nil, nil) when no row matched.
func (r *Repository) Update(ctx context.Context, tenantID, noteID uuid.UUID, patch UpdatePatch, ownerID *uuid.UUID) (*models.Note, error) {
	q := `UPDATE notes SET
			title = COALESCE($3, title),
			content = COALESCE($4, content),
			tags = COALESCE($5, tags),
			archived = COALESCE($6, archived),
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND NOT deleted`
	args := []interface{}{noteID, tenantID, patch.Title, patch.Content, patch.Tags, patch.Archived}
	if ownerID != nil {
		args = append(args, *ownerID)
		q += ` AND user_id = $7`
	}
	q += ` RETURNING ` + noteColumns

	var n models.Note
	err := r.pool.QueryRow(ctx, q, args...).Scan(&n.ID, &n.TenantID, &n.UserID, &n.Title, &n.Content,
		&n.Tags, &n.Archived, &n.Deleted, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SoftDelete flips the deleted flag under the same scoping as Get and
// returns the deleted note's owner. Reports false when no row matched,
// including a note already flagged deleted, so a repeated delete reports
// not-found rather than succeeding twice.
func (r *Repository) SoftDelete(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (uuid.UUID, bool, error) {
	q := `UPDATE notes SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND NOT deleted`
	args := []interface{}{noteID, tenantID}
	if ownerID != nil {
		args = append(args, *ownerID)
		q += ` AND user_id = $3`
	}
	q += ` RETURNING user_id`
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, q, args...).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return owner, true, nil
}

// CountActive counts the tenant's non-deleted notes (quota checks).
func (r *Repository) CountActive(ctx context.Context, tenantID uuid.UUID) (int, error) {
	const q = `SELECT count(*) FROM notes WHERE tenant_id = $1 AND NOT deleted`
	var n int
	err := r.pool.QueryRow(ctx, q, tenantID).Scan(&n)
	return n, err
}

// CountByStatus returns the tenant's non-deleted note total and how many of
// those are archived.
func (r *Repository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (total, archived int, err error) {
	const q = `SELECT count(*), count(*) FILTER (WHERE archived)
		FROM notes WHERE tenant_id = $1 AND NOT deleted`
	err = r.pool.QueryRow(ctx, q, tenantID).Scan(&total, &archived)
	return total, archived, err
}
