package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type UserRepo interface {
	GetByTenantEmail(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, email string) (*types.User, error)
	// CreateIfAbsent inserts u unless (tenant_id, email) already exists.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, u *types.User) (bool, error)
	UpdateDisplayName(ctx context.Context, tx *gorm.DB, id uuid.UUID, displayName string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) GetByTenantEmail(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstUser(transaction.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, email))
}

func (r *userRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, u *types.User) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(u)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepo) UpdateDisplayName(ctx context.Context, tx *gorm.DB, id uuid.UUID, displayName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"display_name": displayName,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func firstUser(q *gorm.DB) (*types.User, error) {
	var out types.User
	if err := q.Limit(1).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
