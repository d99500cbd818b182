package notes

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/models"
	"github.com/notevault/backend/internal/policy"
	"github.com/notevault/backend/internal/subscription"
	"github.com/notevault/backend/pkg/response"
)

// CreateRequest is the body for POST /notes. Any tenant or owner fields in
// the payload are ignored; scoping comes from the verified identity.
type CreateRequest struct {
	Title   string   `json:"title" binding:"required,min=1,max=255"`
	Content string   `json:"content" binding:"required,min=1,max=10000"`
	Tags    []string `json:"tags" binding:"omitempty,dive,max=50"`
}

// UpdateRequest is the body for PATCH /notes/:id; absent fields are unchanged.
type UpdateRequest struct {
	Title    *string  `json:"title" binding:"omitempty,min=1,max=255"`
	Content  *string  `json:"content" binding:"omitempty,min=1,max=10000"`
	Tags     []string `json:"tags" binding:"omitempty,dive,max=50"`
	Archived *bool    `json:"archived"`
}

// EventPublisher fans note change events out to the tenant's realtime
// subscribers. Payloads carry ids only, never note content.
type EventPublisher interface {
	PublishNoteEvent(tenantID uuid.UUID, event string, noteID, ownerID uuid.UUID)
}

// Handler handles note HTTP endpoints.
type Handler struct {
	svc    *Service
	events EventPublisher
	logger *zap.Logger
}

// NewHandler creates a notes handler. events may be nil.
func NewHandler(svc *Service, events EventPublisher, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, events: events, logger: logger}
}

// Create handles POST /notes.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	if err := policy.Authorize(identity, policy.ActionCreate, nil); err != nil {
		h.denied(c, err)
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	note, err := h.svc.Create(c.Request.Context(), identity.TenantID, identity.UserID, CreateInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		var limitErr *subscription.LimitExceededError
		switch {
		case errors.As(err, &limitErr):
			response.PaymentRequired(c, "note limit exceeded", gin.H{"used": limitErr.Used, "limit": limitErr.Limit})
		case errors.Is(err, ErrValidation):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("create note", zap.Error(err))
			response.Internal(c, "failed to create note")
		}
		return
	}

	h.publish(identity.TenantID, "note_created", note.ID, note.UserID)
	response.Created(c, note)
}

// List handles GET /notes. Members always see only their own notes; admins
// see the whole tenant and may narrow with ?owner_id.
func (h *Handler) List(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	action := policy.ActionListAll
	if policy.OwnerFilter(identity) != nil {
		action = policy.ActionReadOwn
	}
	if err := policy.Authorize(identity, action, nil); err != nil {
		h.denied(c, err)
		return
	}

	f := ListFilter{
		OwnerID: policy.OwnerFilter(identity),
		Search:  c.Query("search"),
	}
	if f.OwnerID == nil && c.Query("owner_id") != "" {
		ownerID, err := uuid.Parse(c.Query("owner_id"))
		if err != nil {
			response.BadRequest(c, "invalid owner_id")
			return
		}
		f.OwnerID = &ownerID
	}
	if v := c.Query("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "invalid archived flag")
			return
		}
		f.Archived = &archived
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "0"))

	list, info, err := h.svc.List(c.Request.Context(), identity.TenantID, f)
	if err != nil {
		h.logger.Error("list notes", zap.Error(err))
		response.Internal(c, "failed to list notes")
		return
	}
	if list == nil {
		list = []models.Note{}
	}
	response.OK(c, gin.H{"notes": list, "page_info": info})
}

// Get handles GET /notes/:id.
func (h *Handler) Get(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	noteID, ok := h.noteID(c)
	if !ok {
		return
	}
	if err := policy.Authorize(identity, policy.ReadAction(identity.Role), nil); err != nil {
		h.denied(c, err)
		return
	}

	note, err := h.svc.Get(c.Request.Context(), identity.TenantID, noteID, policy.OwnerFilter(identity))
	if err != nil {
		h.notFoundOrInternal(c, err, "get note")
		return
	}
	response.OK(c, note)
}

// Update handles PATCH /notes/:id.
func (h *Handler) Update(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	noteID, ok := h.noteID(c)
	if !ok {
		return
	}
	if err := policy.Authorize(identity, policy.UpdateAction(identity.Role), nil); err != nil {
		h.denied(c, err)
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	note, err := h.svc.Update(c.Request.Context(), identity.TenantID, noteID, UpdatePatch{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Archived: req.Archived,
	}, policy.OwnerFilter(identity))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.BadRequest(c, err.Error())
			return
		}
		h.notFoundOrInternal(c, err, "update note")
		return
	}

	h.publish(identity.TenantID, "note_updated", note.ID, note.UserID)
	response.OK(c, note)
}

// Delete handles DELETE /notes/:id (soft delete).
func (h *Handler) Delete(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	noteID, ok := h.noteID(c)
	if !ok {
		return
	}
	if err := policy.Authorize(identity, policy.DeleteAction(identity.Role), nil); err != nil {
		h.denied(c, err)
		return
	}

	owner, err := h.svc.SoftDelete(c.Request.Context(), identity.TenantID, noteID, policy.OwnerFilter(identity))
	if err != nil {
		h.notFoundOrInternal(c, err, "delete note")
		return
	}

	h.publish(identity.TenantID, "note_deleted", noteID, owner)
	response.NoContent(c)
}

// Stats handles GET /notes/stats. Any tenant user may see the aggregate so
// members can tell when creation will hit the quota.
func (h *Handler) Stats(c *gin.Context) {
	identity := auth.IdentityFromContext(c)
	st, err := h.svc.Stats(c.Request.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("note stats", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, st)
}

func (h *Handler) noteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid note id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) denied(c *gin.Context, err error) {
	if errors.Is(err, policy.ErrAccessDenied) {
		// Opacity: an ownership miss looks like a missing note.
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	response.Forbidden(c, policy.ErrInsufficientPermissions.Error())
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error, op string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	h.logger.Error(op, zap.Error(err))
	response.Internal(c, "operation failed")
}

func (h *Handler) publish(tenantID uuid.UUID, event string, noteID, ownerID uuid.UUID) {
	if h.events != nil {
		h.events.PublishNoteEvent(tenantID, event, noteID, ownerID)
	}
}
