package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, sc scope.Scope, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Section, error)
	Create(ctx context.Context, sc scope.Scope, section *models.Section) error
	Update(ctx context.Context, sc scope.Scope, section *models.Section) error
	Delete(ctx context.Context, sc scope.Scope, id string) error
}

// CreateSectionRequest describes section creation payload.
type CreateSectionRequest struct {
	ClassID  string `json:"class_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code" validate:"required"`
	Capacity *int   `json:"capacity,omitempty" validate:"omitempty,gt=0"`
}

// UpdateSectionRequest describes the mutable section fields.
type UpdateSectionRequest struct {
	Name     *string `json:"name,omitempty"`
	Code     *string `json:"code,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
}

// SectionService manages sections within classes.
type SectionService struct {
	repo      sectionRepository
	classes   classReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, classes classReader, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, sc scope.Scope, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return sections, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads one section.
func (s *SectionService) Get(ctx context.Context, sc scope.Scope, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.FromError(err)
	}
	return section, nil
}

// Create adds a new section after validating its parent class.
func (s *SectionService) Create(ctx context.Context, sc scope.Scope, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.classes.FindByID(ctx, sc, req.ClassID); err != nil {
		return nil, refError(err, "classId", "class not found")
	}

	section := &models.Section{
		ClassID:  req.ClassID,
		Name:     req.Name,
		Code:     req.Code,
		Capacity: req.Capacity,
	}
	if err := s.repo.Create(ctx, sc, section); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section code already exists in this class")
		}
		return nil, appErrors.FromError(err)
	}
	return section, nil
}

// Update modifies a section.
func (s *SectionService) Update(ctx context.Context, sc scope.Scope, id string, req UpdateSectionRequest) (*models.Section, error) {
	section, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		section.Name = *req.Name
	}
	if req.Code != nil {
		section.Code = *req.Code
	}
	if req.Capacity != nil {
		section.Capacity = req.Capacity
	}

	if err := s.repo.Update(ctx, sc, section); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section code already exists in this class")
		}
		return nil, appErrors.FromError(err)
	}
	return section, nil
}

// Delete removes a section.
func (s *SectionService) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sc, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}
