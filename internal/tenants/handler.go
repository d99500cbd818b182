package tenants

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/models"
	"github.com/notevault/backend/internal/policy"
	"github.com/notevault/backend/pkg/response"
)

// UpdateTenantRequest is the body for PATCH /tenant. Only the display name is
// mutable; the slug is fixed at provisioning.
type UpdateTenantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// MemberStore lists and deactivates the tenant's users.
type MemberStore interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error)
	Deactivate(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)
}

// Handler handles tenant HTTP endpoints.
type Handler struct {
	repo    *Repository
	members MemberStore
	logger  *zap.Logger
}

// NewHandler creates a tenants handler.
func NewHandler(repo *Repository, members MemberStore, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, members: members, logger: logger}
}

// Get handles GET /tenant: the caller's own tenant profile.
func (h *Handler) Get(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	tenant, err := h.repo.GetByID(c.Request.Context(), identity.TenantID)
	if err != nil || tenant == nil {
		h.logger.Error("load tenant", zap.Error(err))
		response.Internal(c, "failed to load tenant")
		return
	}
	response.OK(c, tenant)
}

// Update handles PATCH /tenant (admin only).
func (h *Handler) Update(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	if err := policy.Authorize(identity, policy.ActionManageTenant, nil); err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tenant, err := h.repo.UpdateName(c.Request.Context(), identity.TenantID, strings.TrimSpace(req.Name))
	if err != nil || tenant == nil {
		h.logger.Error("update tenant", zap.Error(err))
		response.Internal(c, "failed to update tenant")
		return
	}
	response.OK(c, tenant)
}

// Upgrade handles POST /tenant/upgrade (admin only). The free to pro move is
// one-directional and idempotent: upgrading an already-pro tenant returns the
// same unlimited state without error.
func (h *Handler) Upgrade(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	if err := policy.Authorize(identity, policy.ActionUpgradePlan, nil); err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	tenant, err := h.repo.Upgrade(c.Request.Context(), identity.TenantID)
	if err != nil || tenant == nil {
		h.logger.Error("upgrade tenant", zap.Error(err))
		response.Internal(c, "failed to upgrade tenant")
		return
	}
	response.OK(c, tenant)
}

// ListMembers handles GET /tenant/members (admin only).
func (h *Handler) ListMembers(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	if err := policy.Authorize(identity, policy.ActionManageTenant, nil); err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	members, err := h.members.ListByTenant(c.Request.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("list members", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	if members == nil {
		members = []models.UserPublic{}
	}
	response.OK(c, members)
}

// DeactivateMember handles PATCH /tenant/members/:id/deactivate (admin only).
// Deactivated users fail identity resolution on their next request.
func (h *Handler) DeactivateMember(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	if err := policy.Authorize(identity, policy.ActionManageTenant, nil); err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	if memberID == identity.UserID {
		response.BadRequest(c, "cannot deactivate yourself")
		return
	}
	ok, err := h.members.Deactivate(c.Request.Context(), identity.TenantID, memberID)
	if err != nil {
		h.logger.Error("deactivate member", zap.Error(err))
		response.Internal(c, "failed to deactivate member")
		return
	}
	if !ok {
		response.NotFound(c, "member not found")
		return
	}
	response.OK(c, gin.H{"deactivated": true})
}

// Lookup handles GET /tenants/:slug, the public directory endpoint. Optional
// auth: callers resolved into the same tenant also see plan and quota.
func (h *Handler) Lookup(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	tenant, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		h.logger.Error("tenant lookup", zap.Error(err))
		response.Internal(c, "lookup failed")
		return
	}
	if tenant == nil || !tenant.IsActive {
		response.NotFound(c, "tenant not found")
		return
	}

	body := gin.H{"slug": tenant.Slug, "name": tenant.Name, "is_active": tenant.IsActive}
	if identity := auth.IdentityFromContext(c); identity != nil && identity.TenantID == tenant.ID {
		body["plan"] = tenant.Plan
		body["note_quota"] = tenant.NoteQuota
	}
	response.OK(c, body)
}
