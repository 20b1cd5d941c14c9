package library

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

const (
	// MaxSearchResults caps every similarity query.
	MaxSearchResults = 20
	// MaxListResults caps list endpoints.
	MaxListResults = 100
)

type StyleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, s *types.Style) error
	GetByTenant(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Style, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, tenantID, ownerID uuid.UUID, limit int) ([]*types.Style, error)
	// DeleteOwned removes the style if ownerID created it, clearing history
	// references in the same transaction. It reports whether a row was removed.
	DeleteOwned(ctx context.Context, tx *gorm.DB, tenantID, ownerID, id uuid.UUID) (bool, error)
	// SearchNearest expects a literal already validated by vectorcodec.
	SearchNearest(ctx context.Context, tx *gorm.DB, tenantID, ownerID uuid.UUID, literal string, k int) ([]*types.StyleMatch, error)
	// ListMissingEmbedding returns the oldest styles without an embedding. A
	// nil tenantID spans every tenant.
	ListMissingEmbedding(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID, limit int) ([]*types.Style, error)
	CountMissingEmbedding(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID) (int64, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, literal string) error
}

type styleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStyleRepo(db *gorm.DB, baseLog *logger.Logger) StyleRepo {
	repoLog := baseLog.With("repo", "StyleRepo")
	return &styleRepo{db: db, log: repoLog}
}

func (r *styleRepo) Create(ctx context.Context, tx *gorm.DB, s *types.Style) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return transaction.WithContext(ctx).Create(s).Error
}

func (r *styleRepo) GetByTenant(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Style, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Style
	err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *styleRepo) ListByOwner(ctx context.Context, tx *gorm.DB, tenantID, ownerID uuid.UUID, limit int) ([]*types.Style, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Style
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND created_by = ?", tenantID, ownerID).
		Order("created_at DESC").
		Limit(clampLimit(limit, MaxListResults, MaxListResults)).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *styleRepo) DeleteOwned(ctx context.Context, tx *gorm.DB, tenantID, ownerID, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	deleted := false
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var count int64
		if err := txx.Model(&types.Style{}).
			Where("id = ? AND tenant_id = ? AND created_by = ?", id, tenantID, ownerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if err := txx.Model(&types.History{}).
			Where("tenant_id = ? AND style_id = ?", tenantID, id).
			Update("style_id", nil).Error; err != nil {
			return err
		}
		res := txx.Where("id = ? AND tenant_id = ? AND created_by = ?", id, tenantID, ownerID).
			Delete(&types.Style{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *styleRepo) SearchNearest(ctx context.Context, tx *gorm.DB, tenantID, ownerID uuid.UUID, literal string, k int) ([]*types.StyleMatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StyleMatch
	if err := nearestQuery(transaction.WithContext(ctx), tenantID, ownerID, literal, k).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// nearestQuery orders by pgvector cosine distance. Rows without an
// embedding and rows owned by other users never match.
func nearestQuery(q *gorm.DB, tenantID, ownerID uuid.UUID, literal string, k int) *gorm.DB {
	return q.Table(types.Style{}.TableName()).
		Select("*, (embedding <=> CAST(? AS vector)) AS distance", literal).
		Where("tenant_id = ? AND created_by = ? AND embedding IS NOT NULL", tenantID, ownerID).
		Order("distance ASC").
		Limit(clampLimit(k, 5, MaxSearchResults))
}

func (r *styleRepo) ListMissingEmbedding(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID, limit int) ([]*types.Style, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("embedding IS NULL")
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	var out []*types.Style
	if err := q.Order("created_at ASC").
		Limit(clampLimit(limit, 20, MaxListResults)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *styleRepo) CountMissingEmbedding(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Style{}).Where("embedding IS NULL")
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *styleRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, literal string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Style{}).
		Where("id = ?", id).
		Update("embedding", literal).Error
}

func clampLimit(n, def, max int) int {
	if n <= 0 {
		n = def
	}
	if n > max {
		n = max
	}
	return n
}
