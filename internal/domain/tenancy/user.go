package tenancy

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_tenant_email,priority:1;column:tenant_id" json:"tenant_id"`
	Email       string    `gorm:"not null;uniqueIndex:idx_user_tenant_email,priority:2;column:email" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	CreatedAt   time.Time `gorm:"not null;column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }
