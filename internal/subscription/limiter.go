// Package subscription gates note creation on the tenant's plan quota.
package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/notevault/backend/internal/models"
)

// LimitExceededError reports a free-plan tenant at or over its note quota.
type LimitExceededError struct {
	Used  int
	Limit int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("note limit exceeded: %d of %d used", e.Used, e.Limit)
}

// TenantStore loads tenants for quota checks. Not-found is (nil, nil).
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// NoteCounter counts a tenant's non-deleted notes.
type NoteCounter interface {
	CountActive(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Limiter enforces per-tenant note quotas. The count-then-create sequence is
// not atomic against concurrent creations from the same tenant; enforcement
// is best-effort and a slight overshoot under concurrent bursts is tolerated.
type Limiter struct {
	tenants TenantStore
	notes   NoteCounter
}

// NewLimiter creates a subscription limiter.
func NewLimiter(tenants TenantStore, notes NoteCounter) *Limiter {
	return &Limiter{tenants: tenants, notes: notes}
}

// CheckCanCreate returns nil when the tenant may create another note, or a
// *LimitExceededError when a free tenant is at its quota.
func (l *Limiter) CheckCanCreate(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := l.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s not found", tenantID)
	}
	if tenant.Unlimited() {
		return nil
	}
	used, err := l.notes.CountActive(ctx, tenantID)
	if err != nil {
		return err
	}
	if used >= tenant.NoteQuota {
		return &LimitExceededError{Used: used, Limit: tenant.NoteQuota}
	}
	return nil
}
