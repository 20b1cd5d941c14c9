package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Style is a reusable visual style owned by the user that created it.
// Embedding holds the pgvector literal and is nil until an embedding has
// been computed.
type Style struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID                   `gorm:"type:uuid;not null;index:idx_style_tenant_owner,priority:1;column:tenant_id" json:"tenant_id"`
	CreatedBy   uuid.UUID                   `gorm:"type:uuid;not null;index:idx_style_tenant_owner,priority:2;column:created_by" json:"created_by"`
	Name        string                      `gorm:"not null;column:name" json:"name"`
	Prompt      string                      `gorm:"type:text;not null;column:prompt" json:"prompt"`
	Description string                      `gorm:"type:text;column:description" json:"description"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	PreviewURL  string                      `gorm:"type:text;column:preview_url" json:"preview_url"`
	Embedding   *string                     `gorm:"type:vector;column:embedding" json:"-"`
	CreatedAt   time.Time                   `gorm:"not null;index;column:created_at" json:"created_at"`
}

func (Style) TableName() string { return "style" }

func (s *Style) HasEmbedding() bool {
	return s != nil && s.Embedding != nil && *s.Embedding != ""
}

// StyleMatch is a Style returned from a similarity search together with its
// cosine distance to the query vector.
type StyleMatch struct {
	Style
	Distance float64 `gorm:"column:distance" json:"distance"`
}
