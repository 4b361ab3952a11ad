package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/repository"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

type tenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
}

type tenantCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// CreateTenantRequest describes tenant provisioning payload.
type CreateTenantRequest struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,min=2,max=64"`
}

// UpdateTenantRequest describes the mutable tenant fields.
type UpdateTenantRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// TenantService resolves and administers tenants. Resolution results are
// cached briefly in Redis since every request passes through Resolve.
type TenantService struct {
	repo      tenantRepository
	cache     tenantCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTenantService constructs TenantService.
func NewTenantService(repo tenantRepository, cache tenantCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TenantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TenantService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, validator: validate, logger: logger}
}

// Resolve turns an inbound tenant identifier (id or slug) into a validated,
// active tenant record. Unknown identifiers yield 404; a disabled tenant
// yields 403 so its own callers see why their requests stopped working.
func (s *TenantService) Resolve(ctx context.Context, idOrSlug string) (*models.Tenant, error) {
	if idOrSlug == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
	}

	cacheKey := "tenant:" + idOrSlug
	if s.cache != nil {
		var cached models.Tenant
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordTenantCacheLookup(true)
			return s.checkActive(&cached)
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("tenant cache lookup failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.metrics.RecordTenantCacheLookup(false)
	}

	var tenant *models.Tenant
	var err error
	if uuidPattern.MatchString(strings.ToLower(idOrSlug)) {
		tenant, err = s.repo.FindByID(ctx, idOrSlug)
	} else {
		tenant, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tenant")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, tenant, s.cacheTTL); err != nil {
			s.logger.Warn("tenant cache store failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return s.checkActive(tenant)
}

func (s *TenantService) checkActive(tenant *models.Tenant) (*models.Tenant, error) {
	if !tenant.IsActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "tenant is inactive")
	}
	return tenant, nil
}

// List returns tenants with pagination metadata.
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, *models.Pagination, error) {
	tenants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tenants")
	}
	return tenants, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Create provisions a new tenant.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}
	tenant := &models.Tenant{Name: req.Name, Slug: strings.ToLower(req.Slug), IsActive: true}
	if err := s.repo.Create(ctx, tenant); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "tenant slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tenant")
	}
	return tenant, nil
}

// Update modifies tenant name and active flag, invalidating cached snapshots.
func (s *TenantService) Update(ctx context.Context, id string, req UpdateTenantRequest) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tenant")
	}

	if s.cache != nil {
		for _, key := range []string{fmt.Sprintf("tenant:%s", tenant.ID), fmt.Sprintf("tenant:%s", tenant.Slug)} {
			if err := s.cache.Delete(ctx, key); err != nil {
				s.logger.Warn("tenant cache invalidation failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return tenant, nil
}
