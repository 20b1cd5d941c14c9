package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type TenantRepo interface {
	GetEarliest(ctx context.Context, tx *gorm.DB) (*types.Tenant, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.Tenant, error)
	// CreateIfAbsent inserts t unless a row with the same unique key exists.
	// It reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, t *types.Tenant) (bool, error)
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	repoLog := baseLog.With("repo", "TenantRepo")
	return &tenantRepo{db: db, log: repoLog}
}

func (r *tenantRepo) GetEarliest(ctx context.Context, tx *gorm.DB) (*types.Tenant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstTenant(transaction.WithContext(ctx).Order("created_at ASC").Order("id ASC"))
}

func (r *tenantRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.Tenant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstTenant(transaction.WithContext(ctx).Where("external_id = ?", externalID))
}

func (r *tenantRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, t *types.Tenant) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func firstTenant(q *gorm.DB) (*types.Tenant, error) {
	var out types.Tenant
	if err := q.Limit(1).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
