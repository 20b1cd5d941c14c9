package tenancy

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTenantSlug identifies the bootstrap tenant every caller falls into
// unless tenants are derived from token claims.
const DefaultTenantSlug = "default"

type Tenant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null;column:name" json:"name"`
	Slug       string    `gorm:"not null;uniqueIndex;column:slug" json:"slug"`
	ExternalID *string   `gorm:"uniqueIndex;column:external_id" json:"external_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index;column:created_at" json:"created_at"`
}

func (Tenant) TableName() string { return "tenant" }
