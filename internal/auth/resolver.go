package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/models"
)

var (
	// ErrMissingToken means the Authorization header is absent or not a Bearer scheme.
	ErrMissingToken = errors.New("missing or malformed authorization header")
	// ErrInvalidToken means the token failed signature or expiry validation.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrRevoked means the token or the account behind it is no longer valid:
	// denylisted jti, user missing for the claimed tenant, or user deactivated.
	ErrRevoked = errors.New("token revoked")
	// ErrTenantInactive means the account's tenant is missing or deactivated.
	ErrTenantInactive = errors.New("tenant inactive")
)

// Identity is the verified, tenant-scoped principal for one request. It is
// the only trusted identity representation downstream of the resolver; in
// particular its TenantID is the sole source of truth for tenant scoping.
type Identity struct {
	UserID     uuid.UUID
	Email      string
	Role       models.Role
	TenantID   uuid.UUID
	TenantSlug string
	TenantPlan models.Plan
}

// UserStore loads users for identity resolution. Not-found is (nil, nil).
type UserStore interface {
	GetByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.User, error)
}

// TenantStore loads tenants for identity resolution. Not-found is (nil, nil).
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// TokenDenylist checks whether a token id has been revoked (logout).
type TokenDenylist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Resolver turns a bearer header into a verified Identity. Resolution is
// read-only and rejects revoked, mismatched and inactive accounts.
type Resolver struct {
	jwt      *JWTService
	users    UserStore
	tenants  TenantStore
	denylist TokenDenylist
}

// NewResolver creates an identity resolver. denylist may be nil to disable
// revocation checks (tests).
func NewResolver(jwt *JWTService, users UserStore, tenants TenantStore, denylist TokenDenylist) *Resolver {
	return &Resolver{jwt: jwt, users: users, tenants: tenants, denylist: denylist}
}

// Resolve verifies the Authorization header value and returns the identity.
func (r *Resolver) Resolve(ctx context.Context, bearerHeader string) (*Identity, error) {
	token, err := extractBearer(bearerHeader)
	if err != nil {
		return nil, err
	}
	return r.ResolveToken(ctx, token)
}

// ResolveToken verifies a raw token string (e.g. from a websocket query parameter).
func (r *Resolver) ResolveToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := r.jwt.Validate(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if r.denylist != nil && claims.ID != "" {
		revoked, err := r.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevoked
		}
	}

	// The user must still exist under the claimed tenant and be active; the
	// database row, not the token, is authoritative for role and email.
	user, err := r.users.GetByIDForTenant(ctx, claims.UserID, claims.TenantID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrRevoked
	}

	tenant, err := r.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	return &Identity{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		TenantPlan: tenant.Plan,
	}, nil
}

// ResolveOptional is the best-effort variant for optional-auth endpoints: it
// never fails, yielding a nil identity on any error.
func (r *Resolver) ResolveOptional(ctx context.Context, bearerHeader string) *Identity {
	identity, err := r.Resolve(ctx, bearerHeader)
	if err != nil {
		return nil
	}
	return identity
}

func extractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
