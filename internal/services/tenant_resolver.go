package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/infographic-backend/internal/data/db"
	"github.com/yungbote/infographic-backend/internal/data/repos"
	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

const (
	TenantStrategyDefault = "default"
	TenantStrategyClaim   = "claim"
)

// Caller is the tenant and user a verified identity maps to. UserID is nil
// when the identity carries no usable email.
type Caller struct {
	TenantID    uuid.UUID
	UserID      *uuid.UUID
	Email       string
	DisplayName string
}

type TenantResolver interface {
	Resolve(ctx context.Context, id *ctxutil.Identity) (*Caller, error)
}

type TenantResolverConfig struct {
	Strategy          string
	DefaultTenantName string
}

type tenantResolver struct {
	log         *logger.Logger
	tenants     repos.TenantRepo
	users       repos.UserRepo
	strategy    string
	defaultName string
}

func NewTenantResolver(log *logger.Logger, tenants repos.TenantRepo, users repos.UserRepo, cfg TenantResolverConfig) TenantResolver {
	strategy := strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if strategy != TenantStrategyClaim {
		strategy = TenantStrategyDefault
	}
	name := strings.TrimSpace(cfg.DefaultTenantName)
	if name == "" {
		name = "Default Tenant"
	}
	return &tenantResolver{
		log:         log.With("service", "TenantResolver"),
		tenants:     tenants,
		users:       users,
		strategy:    strategy,
		defaultName: name,
	}
}

func (r *tenantResolver) Resolve(ctx context.Context, id *ctxutil.Identity) (*Caller, error) {
	if id == nil {
		return nil, ErrUnauthorized
	}
	tenant, err := r.resolveTenant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	caller := &Caller{
		TenantID: tenant.ID,
		Email:    strings.ToLower(strings.TrimSpace(id.PrimaryEmail())),
	}
	caller.DisplayName = strings.TrimSpace(id.Name)
	if caller.DisplayName == "" {
		caller.DisplayName = caller.Email
	}
	if caller.Email == "" {
		return caller, nil
	}

	user, err := r.resolveUser(ctx, tenant.ID, caller.Email, caller.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	caller.UserID = &user.ID
	r.refreshDisplayName(ctx, user, strings.TrimSpace(id.Name))
	return caller, nil
}

// refreshDisplayName follows name changes made at the identity provider. A
// failed update only costs a stale name, so it is logged and ignored.
func (r *tenantResolver) refreshDisplayName(ctx context.Context, user *types.User, name string) {
	if name == "" || name == user.DisplayName {
		return
	}
	if err := r.users.UpdateDisplayName(ctx, nil, user.ID, name); err != nil {
		r.log.Warn("display name refresh failed", "user_id", user.ID, "error", err)
		return
	}
	user.DisplayName = name
}

func (r *tenantResolver) resolveTenant(ctx context.Context, id *ctxutil.Identity) (*types.Tenant, error) {
	if r.strategy == TenantStrategyClaim && strings.TrimSpace(id.TenantClaim) != "" {
		return r.claimTenant(ctx, strings.TrimSpace(id.TenantClaim))
	}
	return r.defaultTenant(ctx)
}

func (r *tenantResolver) defaultTenant(ctx context.Context) (*types.Tenant, error) {
	t, err := r.tenants.GetEarliest(ctx, nil)
	if err != nil || t != nil {
		return t, err
	}
	if _, err := r.tenants.CreateIfAbsent(ctx, nil, &types.Tenant{
		Name:      r.defaultName,
		Slug:      types.DefaultTenantSlug,
		CreatedAt: time.Now().UTC(),
	}); err != nil && !db.IsUniqueViolation(err) {
		return nil, err
	}
	t, err = r.tenants.GetEarliest(ctx, nil)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("default tenant missing after insert")
	}
	r.log.Info("Bootstrapped default tenant", "tenant_id", t.ID)
	return t, nil
}

func (r *tenantResolver) claimTenant(ctx context.Context, externalID string) (*types.Tenant, error) {
	t, err := r.tenants.GetByExternalID(ctx, nil, externalID)
	if err != nil || t != nil {
		return t, err
	}
	ext := externalID
	if _, err := r.tenants.CreateIfAbsent(ctx, nil, &types.Tenant{
		Name:       externalID,
		Slug:       "tid-" + strings.ToLower(externalID),
		ExternalID: &ext,
		CreatedAt:  time.Now().UTC(),
	}); err != nil && !db.IsUniqueViolation(err) {
		return nil, err
	}
	t, err = r.tenants.GetByExternalID(ctx, nil, externalID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("tenant %q missing after insert", externalID)
	}
	return t, nil
}

func (r *tenantResolver) resolveUser(ctx context.Context, tenantID uuid.UUID, email, displayName string) (*types.User, error) {
	u, err := r.users.GetByTenantEmail(ctx, nil, tenantID, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	now := time.Now().UTC()
	_, err = r.users.CreateIfAbsent(ctx, nil, &types.User{
		TenantID:    tenantID,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil && !db.IsUniqueViolation(err) {
		return nil, err
	}
	// lost the race or inserted; either way the row is there now
	u, err = r.users.GetByTenantEmail(ctx, nil, tenantID, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s missing after insert", tenantID)
	}
	return u, nil
}
