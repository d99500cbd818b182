package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a tenant's subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// UnlimitedQuota is the note quota sentinel for pro tenants.
const UnlimitedQuota = -1

// Tenant is an isolated organization owning its own users and notes.
// Slug is unique and never reassigned after creation.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Plan      Plan      `json:"plan"`
	NoteQuota int       `json:"note_quota"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Unlimited reports whether the tenant has no note quota.
func (t *Tenant) Unlimited() bool {
	return t.Plan == PlanPro || t.NoteQuota == UnlimitedQuota
}
