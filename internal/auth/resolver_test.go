package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/models"
)

type mockUserStore struct {
	users map[string]*models.User // key: userID|tenantID
}

func userKey(id, tenantID uuid.UUID) string { return id.String() + "|" + tenantID.String() }

func (m *mockUserStore) GetByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.User, error) {
	return m.users[userKey(id, tenantID)], nil
}

type mockTenantStore struct {
	tenants map[uuid.UUID]*models.Tenant
}

func (m *mockTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return m.tenants[id], nil
}

type mockDenylist struct {
	revoked map[string]bool
}

func (m *mockDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

type fixture struct {
	jwt      *JWTService
	users    *mockUserStore
	tenants  *mockTenantStore
	denylist *mockDenylist
	user     *models.User
	tenant   *models.Tenant
}

func newFixture() *fixture {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Plan: models.PlanFree, NoteQuota: 3, IsActive: true}
	user := &models.User{ID: uuid.New(), TenantID: tenant.ID, Email: "user@acme.test", Role: models.RoleMember, IsActive: true}
	return &fixture{
		jwt:      NewJWTService("test-secret", 1),
		users:    &mockUserStore{users: map[string]*models.User{userKey(user.ID, tenant.ID): user}},
		tenants:  &mockTenantStore{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}},
		denylist: &mockDenylist{revoked: map[string]bool{}},
		user:     user,
		tenant:   tenant,
	}
}

func (f *fixture) resolver() *Resolver {
	return NewResolver(f.jwt, f.users, f.tenants, f.denylist)
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, err := f.jwt.Generate(f.user.ID, f.user.TenantID, f.user.Email, string(f.user.Role))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestResolveSuccess(t *testing.T) {
	f := newFixture()
	identity, err := f.resolver().Resolve(context.Background(), "Bearer "+f.token(t))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.UserID != f.user.ID {
		t.Errorf("user id = %s, want %s", identity.UserID, f.user.ID)
	}
	if identity.TenantID != f.tenant.ID {
		t.Errorf("tenant id = %s, want %s", identity.TenantID, f.tenant.ID)
	}
	if identity.TenantSlug != "acme" || identity.TenantPlan != models.PlanFree {
		t.Errorf("tenant fields = %s/%s, want acme/free", identity.TenantSlug, identity.TenantPlan)
	}
	if identity.Role != models.RoleMember {
		t.Errorf("role = %s, want member", identity.Role)
	}
}

func TestResolveHeaderErrors(t *testing.T) {
	f := newFixture()
	r := f.resolver()

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"no scheme", f.token(t)},
		{"wrong scheme", "Basic " + f.token(t)},
		{"scheme only", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(context.Background(), tt.header); !errors.Is(err, ErrMissingToken) {
				t.Fatalf("expected ErrMissingToken, got %v", err)
			}
		})
	}
}

func TestResolveInvalidToken(t *testing.T) {
	f := newFixture()
	if _, err := f.resolver().Resolve(context.Background(), "Bearer garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	other := NewJWTService("other-secret", 1)
	token, _ := other.Generate(f.user.ID, f.user.TenantID, f.user.Email, "member")
	if _, err := f.resolver().Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong signature, got %v", err)
	}
}

func TestResolveDenylistedToken(t *testing.T) {
	f := newFixture()
	token := f.token(t)
	claims, err := f.jwt.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	f.denylist.revoked[claims.ID] = true

	if _, err := f.resolver().Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked for denylisted jti, got %v", err)
	}
}

func TestResolveRevokedAccounts(t *testing.T) {
	t.Run("user missing for claimed tenant", func(t *testing.T) {
		f := newFixture()
		token := f.token(t)
		delete(f.users.users, userKey(f.user.ID, f.tenant.ID))
		if _, err := f.resolver().Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected ErrRevoked, got %v", err)
		}
	})

	t.Run("user deactivated", func(t *testing.T) {
		f := newFixture()
		f.user.IsActive = false
		if _, err := f.resolver().Resolve(context.Background(), "Bearer "+f.token(t)); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected ErrRevoked, got %v", err)
		}
	})

	// A token minted for tenant A never resolves a user of tenant B even if
	// the user id matches: the lookup is keyed by user AND tenant.
	t.Run("token bound to another tenant", func(t *testing.T) {
		f := newFixture()
		foreignTenant := uuid.New()
		token, _ := f.jwt.Generate(f.user.ID, foreignTenant, f.user.Email, "member")
		if _, err := f.resolver().Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected ErrRevoked, got %v", err)
		}
	})
}

func TestResolveTenantInactive(t *testing.T) {
	t.Run("tenant deactivated", func(t *testing.T) {
		f := newFixture()
		f.tenant.IsActive = false
		if _, err := f.resolver().Resolve(context.Background(), "Bearer "+f.token(t)); !errors.Is(err, ErrTenantInactive) {
			t.Fatalf("expected ErrTenantInactive, got %v", err)
		}
	})

	t.Run("tenant missing", func(t *testing.T) {
		f := newFixture()
		token := f.token(t)
		delete(f.tenants.tenants, f.tenant.ID)
		if _, err := f.resolver().Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrTenantInactive) {
			t.Fatalf("expected ErrTenantInactive, got %v", err)
		}
	})
}

func TestResolveOptional(t *testing.T) {
	f := newFixture()

	if identity := f.resolver().ResolveOptional(context.Background(), ""); identity != nil {
		t.Fatal("anonymous caller must yield nil identity, not an error")
	}
	if identity := f.resolver().ResolveOptional(context.Background(), "Bearer garbage"); identity != nil {
		t.Fatal("invalid token must yield nil identity")
	}
	identity := f.resolver().ResolveOptional(context.Background(), "Bearer "+f.token(t))
	if identity == nil || identity.UserID != f.user.ID {
		t.Fatal("valid token must resolve normally")
	}
}

func TestResolveWithoutDenylist(t *testing.T) {
	f := newFixture()
	r := NewResolver(f.jwt, f.users, f.tenants, nil)
	if _, err := r.Resolve(context.Background(), "Bearer "+f.token(t)); err != nil {
		t.Fatalf("nil denylist must not break resolution: %v", err)
	}
}
