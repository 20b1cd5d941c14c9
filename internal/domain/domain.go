package domain

import (
	"github.com/yungbote/infographic-backend/internal/domain/library"
	"github.com/yungbote/infographic-backend/internal/domain/tenancy"
)

const DefaultTenantSlug = tenancy.DefaultTenantSlug

type Tenant = tenancy.Tenant
type User = tenancy.User

type Style = library.Style
type StyleMatch = library.StyleMatch
type History = library.History

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&Tenant{},
		&User{},
		&Style{},
		&History{},
	}
}
