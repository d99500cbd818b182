// Package policy decides whether a verified identity may perform an action.
// It is pure: callers load the facts (resource owner) through tenant-scoped
// queries and pass them in; the policy never touches storage.
package policy

import (
	"errors"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/models"
)

var (
	// ErrInsufficientPermissions means the action is not in the role's permission set.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	// ErrAccessDenied means an own-scoped action targets a resource the caller does not own.
	ErrAccessDenied = errors.New("access denied")
)

// Action is a permission-checked operation. The set is closed; adding an
// action requires extending the permission tables below.
type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionListAll      Action = "list-all"
	ActionManageTenant Action = "manage-tenant"
	ActionUpgradePlan  Action = "upgrade-plan"
	ActionReadOwn      Action = "read-own"
	ActionUpdateOwn    Action = "update-own"
	ActionDeleteOwn    Action = "delete-own"
)

var adminActions = map[Action]struct{}{
	ActionCreate:       {},
	ActionRead:         {},
	ActionUpdate:       {},
	ActionDelete:       {},
	ActionListAll:      {},
	ActionManageTenant: {},
	ActionUpgradePlan:  {},
}

var memberActions = map[Action]struct{}{
	ActionCreate:    {},
	ActionReadOwn:   {},
	ActionUpdateOwn: {},
	ActionDeleteOwn: {},
}

// Authorize checks whether identity may perform action. For own-scoped
// actions resourceOwnerID must be the owning user of the already-loaded
// resource. Admins bypass ownership tenant-wide, never cross-tenant:
// cross-tenant rows never reach here because data queries filter by the
// identity's tenant and report NotFound.
func Authorize(identity *auth.Identity, action Action, resourceOwnerID *uuid.UUID) error {
	if identity == nil {
		return ErrInsufficientPermissions
	}
	allowed := permissionsFor(identity.Role)
	if _, ok := allowed[action]; !ok {
		return ErrInsufficientPermissions
	}
	if isOwnScoped(action) && resourceOwnerID != nil && *resourceOwnerID != identity.UserID {
		return ErrAccessDenied
	}
	return nil
}

// CanPerform reports whether the role's permission set includes action,
// ignoring ownership.
func CanPerform(role models.Role, action Action) bool {
	_, ok := permissionsFor(role)[action]
	return ok
}

// ReadAction returns the read action appropriate for the role: admins read
// tenant-wide, members read their own notes.
func ReadAction(role models.Role) Action {
	if role == models.RoleAdmin {
		return ActionRead
	}
	return ActionReadOwn
}

// UpdateAction returns the update action appropriate for the role.
func UpdateAction(role models.Role) Action {
	if role == models.RoleAdmin {
		return ActionUpdate
	}
	return ActionUpdateOwn
}

// DeleteAction returns the delete action appropriate for the role.
func DeleteAction(role models.Role) Action {
	if role == models.RoleAdmin {
		return ActionDelete
	}
	return ActionDeleteOwn
}

// OwnerFilter returns the owner id data queries must filter by for this
// identity: nil for admins (tenant-wide access), the identity's own user id
// for members.
func OwnerFilter(identity *auth.Identity) *uuid.UUID {
	if identity.Role == models.RoleAdmin {
		return nil
	}
	id := identity.UserID
	return &id
}

func permissionsFor(role models.Role) map[Action]struct{} {
	switch role {
	case models.RoleAdmin:
		return adminActions
	case models.RoleMember:
		return memberActions
	default:
		return nil
	}
}

func isOwnScoped(action Action) bool {
	switch action {
	case ActionReadOwn, ActionUpdateOwn, ActionDeleteOwn:
		return true
	}
	return false
}
