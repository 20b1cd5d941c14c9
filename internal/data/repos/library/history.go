package library

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type HistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, h *types.History) error
	GetOwned(ctx context.Context, tx *gorm.DB, tenantID, userID, id uuid.UUID) (*types.History, error)
	ListByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID, limit int) ([]*types.History, error)
	DeleteOwned(ctx context.Context, tx *gorm.DB, tenantID, userID, id uuid.UUID) (bool, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	repoLog := baseLog.With("repo", "HistoryRepo")
	return &historyRepo{db: db, log: repoLog}
}

func (r *historyRepo) Create(ctx context.Context, tx *gorm.DB, h *types.History) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(h).Error
}

func (r *historyRepo) GetOwned(ctx context.Context, tx *gorm.DB, tenantID, userID, id uuid.UUID) (*types.History, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.History
	err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND user_id = ?", id, tenantID, userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *historyRepo) ListByUser(ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID, limit int) ([]*types.History, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.History
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, MaxListResults)).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *historyRepo) DeleteOwned(ctx context.Context, tx *gorm.DB, tenantID, userID, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND user_id = ?", id, tenantID, userID).
		Delete(&types.History{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
