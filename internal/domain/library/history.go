package library

import (
	"time"

	"github.com/google/uuid"
)

// History records one generated image. StyleID is a weak reference that is
// cleared, never cascaded, when the style is deleted.
type History struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_history_tenant_user,priority:1;column:tenant_id" json:"tenant_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_history_tenant_user,priority:2;column:user_id" json:"user_id"`
	Prompt      string     `gorm:"type:text;not null;column:prompt" json:"prompt"`
	ImageURL    string     `gorm:"type:text;not null;column:image_url" json:"image_url"`
	UserScript  string     `gorm:"type:text;column:user_script" json:"user_script"`
	StylePrompt string     `gorm:"type:text;column:style_prompt" json:"style_prompt"`
	StyleID     *uuid.UUID `gorm:"type:uuid;index;column:style_id" json:"style_id,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index;column:created_at" json:"created_at"`
}

func (History) TableName() string { return "history" }
