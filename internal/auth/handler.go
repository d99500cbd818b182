package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notevault/backend/internal/models"
	"github.com/notevault/backend/pkg/response"
	"github.com/notevault/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login. The tenant slug selects the
// tenant namespace the email is looked up in; emails are unique per tenant.
type LoginRequest struct {
	TenantSlug string `json:"tenant_slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// TenantLookup loads tenants by slug for login. Not-found is (nil, nil).
type TenantLookup interface {
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TokenRevoker revokes token ids (logout).
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users   *Repository
	tenants TenantLookup
	jwt     *JWTService
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users *Repository, tenants TenantLookup, jwt *JWTService, revoker TokenRevoker, logger *zap.Logger) *Handler {
	return &Handler{users: users, tenants: tenants, jwt: jwt, revoker: revoker, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tenant, err := h.tenants.GetBySlug(c.Request.Context(), req.TenantSlug)
	if err != nil {
		h.logger.Error("login tenant lookup", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if tenant == nil || !tenant.IsActive {
		// Same message as bad credentials so tenant existence is not probeable.
		response.Unauthorized(c, "invalid credentials")
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), tenant.ID, req.Email)
	if err != nil {
		h.logger.Error("login user lookup", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if user == nil || !user.IsActive || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid credentials")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.TenantID, user.Email, string(user.Role))
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}

	if err := h.users.UpdateLastLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("update last login", zap.Error(err))
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout: denylists the presented token's jti for
// its remaining lifetime. Repeating a logout is a no-op.
func (h *Handler) Logout(c *gin.Context) {
	token, err := extractBearer(c.GetHeader("Authorization"))
	if err != nil {
		response.Unauthorized(c, ErrMissingToken.Error())
		return
	}
	claims, err := h.jwt.Validate(token)
	if err != nil {
		response.Unauthorized(c, ErrInvalidToken.Error())
		return
	}
	if h.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.logger.Error("revoke token", zap.Error(err))
			response.Internal(c, "logout failed")
			return
		}
	}
	response.OK(c, gin.H{"logged_out": true})
}

// Me handles GET /auth/me, echoing the resolved identity.
func (h *Handler) Me(c *gin.Context) {
	identity := IdentityFromContext(c)
	if identity == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}
	response.OK(c, gin.H{
		"user_id":     identity.UserID,
		"email":       identity.Email,
		"role":        identity.Role,
		"tenant_id":   identity.TenantID,
		"tenant_slug": identity.TenantSlug,
		"tenant_plan": identity.TenantPlan,
	})
}
