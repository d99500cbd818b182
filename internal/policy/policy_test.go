package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/models"
)

func adminIdentity(userID uuid.UUID) *auth.Identity {
	return &auth.Identity{UserID: userID, Role: models.RoleAdmin, TenantID: uuid.New()}
}

func memberIdentity(userID uuid.UUID) *auth.Identity {
	return &auth.Identity{UserID: userID, Role: models.RoleMember, TenantID: uuid.New()}
}

func TestAuthorizePermissionTable(t *testing.T) {
	self := uuid.New()

	tests := []struct {
		name     string
		identity *auth.Identity
		action   Action
		wantErr  error
	}{
		{"admin create", adminIdentity(self), ActionCreate, nil},
		{"admin read", adminIdentity(self), ActionRead, nil},
		{"admin update", adminIdentity(self), ActionUpdate, nil},
		{"admin delete", adminIdentity(self), ActionDelete, nil},
		{"admin list all", adminIdentity(self), ActionListAll, nil},
		{"admin manage tenant", adminIdentity(self), ActionManageTenant, nil},
		{"admin upgrade plan", adminIdentity(self), ActionUpgradePlan, nil},
		{"admin has no own-scoped read", adminIdentity(self), ActionReadOwn, ErrInsufficientPermissions},
		{"member create", memberIdentity(self), ActionCreate, nil},
		{"member read own", memberIdentity(self), ActionReadOwn, nil},
		{"member update own", memberIdentity(self), ActionUpdateOwn, nil},
		{"member delete own", memberIdentity(self), ActionDeleteOwn, nil},
		{"member cannot read tenant-wide", memberIdentity(self), ActionRead, ErrInsufficientPermissions},
		{"member cannot list all", memberIdentity(self), ActionListAll, ErrInsufficientPermissions},
		{"member cannot manage tenant", memberIdentity(self), ActionManageTenant, ErrInsufficientPermissions},
		{"member cannot upgrade plan", memberIdentity(self), ActionUpgradePlan, ErrInsufficientPermissions},
		{"nil identity denied", nil, ActionCreate, ErrInsufficientPermissions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.action, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authorize(%s) = %v, want %v", tt.action, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeOwnership(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	tests := []struct {
		name     string
		identity *auth.Identity
		action   Action
		owner    *uuid.UUID
		wantErr  error
	}{
		{"member reads own note", memberIdentity(self), ActionReadOwn, &self, nil},
		{"member cannot read another's note", memberIdentity(self), ActionReadOwn, &other, ErrAccessDenied},
		{"member cannot update another's note", memberIdentity(self), ActionUpdateOwn, &other, ErrAccessDenied},
		{"member cannot delete another's note", memberIdentity(self), ActionDeleteOwn, &other, ErrAccessDenied},
		{"own-scoped action without loaded owner", memberIdentity(self), ActionReadOwn, nil, nil},
		{"admin bypasses ownership on update", adminIdentity(self), ActionUpdate, &other, nil},
		{"admin bypasses ownership on delete", adminIdentity(self), ActionDelete, &other, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.action, tt.owner)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authorize(%s, owner=%v) = %v, want %v", tt.action, tt.owner, err, tt.wantErr)
			}
		})
	}
}

func TestOwnerFilter(t *testing.T) {
	self := uuid.New()

	if got := OwnerFilter(adminIdentity(self)); got != nil {
		t.Fatalf("admin owner filter = %v, want nil (tenant-wide)", got)
	}
	got := OwnerFilter(memberIdentity(self))
	if got == nil || *got != self {
		t.Fatalf("member owner filter = %v, want own user id %s", got, self)
	}
}

func TestRoleActionHelpers(t *testing.T) {
	if ReadAction(models.RoleAdmin) != ActionRead || ReadAction(models.RoleMember) != ActionReadOwn {
		t.Fatal("ReadAction role mapping wrong")
	}
	if UpdateAction(models.RoleAdmin) != ActionUpdate || UpdateAction(models.RoleMember) != ActionUpdateOwn {
		t.Fatal("UpdateAction role mapping wrong")
	}
	if DeleteAction(models.RoleAdmin) != ActionDelete || DeleteAction(models.RoleMember) != ActionDeleteOwn {
		t.Fatal("DeleteAction role mapping wrong")
	}
}

func TestCanPerformUnknownRole(t *testing.T) {
	if CanPerform(models.Role("superuser"), ActionCreate) {
		t.Fatal("unknown role must have no permissions")
	}
}
