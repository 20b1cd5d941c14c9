package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/infographic-backend/internal/data/repos"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type Repos struct {
	Tenant  repos.TenantRepo
	User    repos.UserRepo
	Style   repos.StyleRepo
	History repos.HistoryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tenant:  repos.NewTenantRepo(db, log),
		User:    repos.NewUserRepo(db, log),
		Style:   repos.NewStyleRepo(db, log),
		History: repos.NewHistoryRepo(db, log),
	}
}
