package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a tenant-scoped note. TenantID and UserID are stamped at creation
// and never change; Deleted is a soft-delete marker, flagged notes are
// excluded from every read and aggregate path.
type Note struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Archived  bool      `json:"archived"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
