package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notevault/backend/internal/models"
)

const userColumns = `id, tenant_id, email, password_hash, role, is_active, last_login_at, created_at, updated_at`

// Repository handles user persistence. Every lookup that serves a request is
// tenant-scoped; the only exception is UpdateLastLogin, keyed by primary key
// obtained from a tenant-scoped read.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByIDForTenant returns the user with the given id belonging to tenantID,
// or (nil, nil) when no such user exists.
func (r *Repository) GetByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND tenant_id = $2`
	return r.scanUser(r.pool.QueryRow(ctx, q, id, tenantID))
}

// GetByEmail returns the tenant's user with the given email, or (nil, nil).
func (r *Repository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND email = $2`
	return r.scanUser(r.pool.QueryRow(ctx, q, tenantID, email))
}

// ListByTenant returns the tenant's users, admins first, then by email.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, email, role, is_active, last_login_at, created_at
		FROM users WHERE tenant_id = $1 ORDER BY role, email`
	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Create inserts a new user (provisioning only).
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (tenant_id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.TenantID, u.Email, u.Password, string(u.Role), u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// UpdateLastLogin stamps last_login_at after a successful authentication.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Deactivate flips the active flag off for a tenant's user. Returns false
// when no matching active user exists.
func (r *Repository) Deactivate(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	const q = `UPDATE users SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND is_active`
	tag, err := r.pool.Exec(ctx, q, userID, tenantID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Password, &u.Role, &u.IsActive,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
