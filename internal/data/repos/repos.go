package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/infographic-backend/internal/data/repos/library"
	"github.com/yungbote/infographic-backend/internal/data/repos/tenancy"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type TenantRepo = tenancy.TenantRepo
type UserRepo = tenancy.UserRepo

type StyleRepo = library.StyleRepo
type HistoryRepo = library.HistoryRepo

const (
	MaxSearchResults = library.MaxSearchResults
	MaxListResults   = library.MaxListResults
)

func NewTenantRepo(db *gorm.DB, log *logger.Logger) TenantRepo { return tenancy.NewTenantRepo(db, log) }
func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo     { return tenancy.NewUserRepo(db, log) }
func NewStyleRepo(db *gorm.DB, log *logger.Logger) StyleRepo   { return library.NewStyleRepo(db, log) }
func NewHistoryRepo(db *gorm.DB, log *logger.Logger) HistoryRepo {
	return library.NewHistoryRepo(db, log)
}
