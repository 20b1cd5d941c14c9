package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/infographic-backend/internal/domain"
)

func SeedTenant(tb testing.TB, ctx context.Context, tx *gorm.DB, slug string, createdAt time.Time) *types.Tenant {
	tb.Helper()
	t := &types.Tenant{
		ID:        uuid.New(),
		Name:      "Tenant " + slug,
		Slug:      slug,
		CreatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, email string) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Email:       email,
		DisplayName: email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedStyle inserts a style; embedding may be nil.
func SeedStyle(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, ownerID uuid.UUID, name string, embedding *string, createdAt time.Time) *types.Style {
	tb.Helper()
	s := &types.Style{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CreatedBy:   ownerID,
		Name:        name,
		Prompt:      "prompt for " + name,
		Description: "description for " + name,
		Tags:        []string{"seed"},
		Embedding:   embedding,
		CreatedAt:   createdAt,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed style: %v", err)
	}
	return s
}

func SeedHistory(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID, styleID *uuid.UUID) *types.History {
	tb.Helper()
	h := &types.History{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Prompt:    "a tidy infographic",
		ImageURL:  "data:image/png;base64,AAAA",
		StyleID:   styleID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		tb.Fatalf("seed history: %v", err)
	}
	return h
}
