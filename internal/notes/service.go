package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/models"
)

// ErrNotFound covers every case a note is not reachable for the caller:
// nonexistent, soft-deleted, another tenant's, or (for members) another
// owner's. They are deliberately indistinguishable so cross-tenant existence
// cannot be probed.
var ErrNotFound = errors.New("note not found")

// ErrValidation reports an input constraint violation.
var ErrValidation = errors.New("invalid note input")

const (
	maxTagLength    = 50
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListFilter selects and pages a tenant's notes. OwnerID is set for
// member-scoped listing and nil for admin tenant-wide listing.
type ListFilter struct {
	OwnerID  *uuid.UUID
	Search   string
	Archived *bool
	Page     int
	PageSize int
}

// PageInfo describes the returned page.
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// CreateInput holds note creation fields. Tenant and owner never come from
// here; they are explicit service parameters.
type CreateInput struct {
	Title   string
	Content string
	Tags    []string
}

// UpdatePatch is a partial update of note fields; nil fields are unchanged.
type UpdatePatch struct {
	Title    *string
	Content  *string
	Tags     []string
	Archived *bool
}

// Stats aggregates a tenant's notes, always excluding deleted ones.
type Stats struct {
	Total     int         `json:"total"`
	Active    int         `json:"active"`
	Archived  int         `json:"archived"`
	Limit     int         `json:"limit"`
	Remaining int         `json:"remaining"`
	Plan      models.Plan `json:"plan"`
}

// Store is the note persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, n *models.Note) error
	List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]models.Note, int, error)
	Get(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (*models.Note, error)
	Update(ctx context.Context, tenantID, noteID uuid.UUID, patch UpdatePatch, ownerID *uuid.UUID) (*models.Note, error)
	SoftDelete(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (owner uuid.UUID, ok bool, err error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (total, archived int, err error)
}

// CreateGate decides whether the tenant may create another note.
type CreateGate interface {
	CheckCanCreate(ctx context.Context, tenantID uuid.UUID) error
}

// TenantStore loads tenants for stats. Not-found is (nil, nil).
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Service is the tenant-scoped data service for notes: the only component
// that reads or writes them. Every method takes the tenant id as a mandatory
// explicit parameter taken from the caller's verified identity, never from
// request input.
type Service struct {
	store   Store
	gate    CreateGate
	tenants TenantStore
}

// NewService creates a note service.
func NewService(store Store, gate CreateGate, tenants TenantStore) *Service {
	return &Service{store: store, gate: gate, tenants: tenants}
}

// Create persists a note for the given tenant and owner after the quota
// check. Tenant and owner are stamped from the parameters even if the
// payload carried such fields.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, in CreateInput) (*models.Note, error) {
	if err := s.gate.CheckCanCreate(ctx, tenantID); err != nil {
		return nil, err
	}
	tags, err := NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	n := &models.Note{
		TenantID: tenantID,
		UserID:   userID,
		Title:    in.Title,
		Content:  in.Content,
		Tags:     tags,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns a page of the tenant's notes. Page defaults to 1, page size
// is clamped to [1,100] with default 10.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]models.Note, PageInfo, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize < 1 {
		f.PageSize = 1
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	list, total, err := s.store.List(ctx, tenantID, f)
	if err != nil {
		return nil, PageInfo{}, err
	}
	info := PageInfo{
		Page:       f.Page,
		PageSize:   f.PageSize,
		Total:      total,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}
	return list, info, nil
}

// Get returns the tenant's note, narrowed to ownerID when set.
func (s *Service) Get(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (*models.Note, error) {
	n, err := s.store.Get(ctx, tenantID, noteID, ownerID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return n, nil
}

// Update applies a partial patch under the same scoping as Get.
func (s *Service) Update(ctx context.Context, tenantID, noteID uuid.UUID, patch UpdatePatch, ownerID *uuid.UUID) (*models.Note, error) {
	if patch.Tags != nil {
		tags, err := NormalizeTags(patch.Tags)
		if err != nil {
			return nil, err
		}
		patch.Tags = tags
	}
	n, err := s.store.Update(ctx, tenantID, noteID, patch, ownerID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return n, nil
}

// SoftDelete flips the deleted flag and returns the note's owner (for event
// attribution when an admin deletes another user's note). A second delete of
// the same note finds nothing (the scoping query excludes deleted rows) and
// reports ErrNotFound, which makes retries harmless.
func (s *Service) SoftDelete(ctx context.Context, tenantID, noteID uuid.UUID, ownerID *uuid.UUID) (uuid.UUID, error) {
	owner, ok, err := s.store.SoftDelete(ctx, tenantID, noteID, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return owner, nil
}

// Stats aggregates the tenant's non-deleted notes against its plan.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*Stats, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, fmt.Errorf("tenant %s not found", tenantID)
	}
	total, archived, err := s.store.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Total:    total,
		Active:   total - archived,
		Archived: archived,
		Limit:    tenant.NoteQuota,
		Plan:     tenant.Plan,
	}
	if tenant.Unlimited() {
		st.Limit = models.UnlimitedQuota
		st.Remaining = models.UnlimitedQuota
	} else if st.Remaining = tenant.NoteQuota - total; st.Remaining < 0 {
		st.Remaining = 0
	}
	return st, nil
}

// NormalizeTags trims, lowercases and deduplicates tags, preserving first
// occurrence order. Empty tags are dropped; overlong tags are rejected.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		// Rune count, matching the handler's binding validation.
		if utf8.RuneCountInString(t) > maxTagLength {
			return nil, fmt.Errorf("%w: tag %q exceeds %d characters", ErrValidation, t, maxTagLength)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
