package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context, sc scope.Scope, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error)
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context, sc scope.Scope) (*models.AcademicYear, error)
	Create(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error
	Update(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, sc scope.Scope, id string) error
	CountEnrollments(ctx context.Context, sc scope.Scope, id string) (int, error)
	Delete(ctx context.Context, sc scope.Scope, id string) error
}

// CreateAcademicYearRequest describes academic year creation payload.
type CreateAcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	Code      string    `json:"code" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  *bool     `json:"is_active,omitempty"`
}

// UpdateAcademicYearRequest describes the mutable academic year fields.
type UpdateAcademicYearRequest struct {
	Name      *string    `json:"name,omitempty"`
	Code      *string    `json:"code,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

// AcademicYearService manages academic year lifecycle.
type AcademicYearService struct {
	repo      academicYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs AcademicYearService.
func NewAcademicYearService(repo academicYearRepository, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, validator: validate, logger: logger}
}

// List returns academic years with pagination metadata.
func (s *AcademicYearService) List(ctx context.Context, sc scope.Scope, filter models.AcademicYearFilter) ([]models.AcademicYear, *models.Pagination, error) {
	years, total, err := s.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return years, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads one academic year.
func (s *AcademicYearService) Get(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.FromError(err)
	}
	return year, nil
}

// Current returns the tenant's current academic year.
func (s *AcademicYearService) Current(ctx context.Context, sc scope.Scope) (*models.AcademicYear, error) {
	year, err := s.repo.FindCurrent(ctx, sc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current academic year set")
		}
		return nil, appErrors.FromError(err)
	}
	return year, nil
}

// Create adds a new academic year for the tenant.
func (s *AcademicYearService) Create(ctx context.Context, sc scope.Scope, req CreateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be after startDate")
	}

	year := &models.AcademicYear{
		Name:      req.Name,
		Code:      req.Code,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  true,
	}
	if req.IsActive != nil {
		year.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, sc, year); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "academic year code already exists")
		}
		return nil, appErrors.FromError(err)
	}
	return year, nil
}

// Update modifies an academic year, re-validating the date invariant.
func (s *AcademicYearService) Update(ctx context.Context, sc scope.Scope, id string, req UpdateAcademicYearRequest) (*models.AcademicYear, error) {
	year, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		year.Name = *req.Name
	}
	if req.Code != nil {
		year.Code = *req.Code
	}
	if req.StartDate != nil {
		year.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		year.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		year.IsActive = *req.IsActive
	}
	if !year.EndDate.After(year.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be after startDate")
	}

	if err := s.repo.Update(ctx, sc, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "academic year code already exists")
		}
		return nil, appErrors.FromError(err)
	}
	return year, nil
}

// SetCurrent flips the current flag to the given year. Clearing the old
// current year and setting the new one commit atomically, so the ≤1 current
// year invariant holds at every instant a reader can observe.
func (s *AcademicYearService) SetCurrent(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error) {
	if err := s.repo.SetCurrent(ctx, sc, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("academic year set current", zap.String("tenant_id", sc.TenantID), zap.String("academic_year_id", id))
	return s.Get(ctx, sc, id)
}

// Delete removes an academic year that has no enrollments.
func (s *AcademicYearService) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	count, err := s.repo.CountEnrollments(ctx, sc, id)
	if err != nil {
		return appErrors.FromError(err)
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "academic year has enrollments and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, sc, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}
