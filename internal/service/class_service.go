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

type classRepository interface {
	List(ctx context.Context, sc scope.Scope, filter models.SchoolClassFilter) ([]models.SchoolClass, int, error)
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.SchoolClass, error)
	Create(ctx context.Context, sc scope.Scope, class *models.SchoolClass) error
	Update(ctx context.Context, sc scope.Scope, class *models.SchoolClass) error
	Delete(ctx context.Context, sc scope.Scope, id string) error
}

// CreateClassRequest describes class creation payload.
type CreateClassRequest struct {
	AcademicYearID    string  `json:"academic_year_id" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Code              string  `json:"code" validate:"required"`
	Level             int     `json:"level" validate:"gte=0"`
	Capacity          *int    `json:"capacity,omitempty" validate:"omitempty,gt=0"`
	HomeroomTeacherID *string `json:"homeroom_teacher_id,omitempty"`
}

// UpdateClassRequest describes the mutable class fields.
type UpdateClassRequest struct {
	Name              *string `json:"name,omitempty"`
	Code              *string `json:"code,omitempty"`
	Level             *int    `json:"level,omitempty"`
	Capacity          *int    `json:"capacity,omitempty"`
	HomeroomTeacherID *string `json:"homeroom_teacher_id,omitempty"`
}

// ClassService manages classes within academic years.
type ClassService struct {
	repo      classRepository
	years     academicYearReader
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, years academicYearReader, users userReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, years: years, users: users, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, sc scope.Scope, filter models.SchoolClassFilter) ([]models.SchoolClass, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return classes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads one class.
func (s *ClassService) Get(ctx context.Context, sc scope.Scope, id string) (*models.SchoolClass, error) {
	class, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.FromError(err)
	}
	return class, nil
}

// Create adds a new class after validating its parent references.
func (s *ClassService) Create(ctx context.Context, sc scope.Scope, req CreateClassRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if _, err := s.years.FindByID(ctx, sc, req.AcademicYearID); err != nil {
		return nil, refError(err, "academicYearId", "academic year not found")
	}
	if req.HomeroomTeacherID != nil && *req.HomeroomTeacherID != "" {
		if _, err := s.users.FindByID(ctx, sc, *req.HomeroomTeacherID); err != nil {
			return nil, refError(err, "homeroomTeacherId", "homeroom teacher not found")
		}
	}

	class := &models.SchoolClass{
		AcademicYearID:    req.AcademicYearID,
		Name:              req.Name,
		Code:              req.Code,
		Level:             req.Level,
		Capacity:          req.Capacity,
		HomeroomTeacherID: req.HomeroomTeacherID,
	}
	if err := s.repo.Create(ctx, sc, class); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists in this academic year")
		}
		return nil, appErrors.FromError(err)
	}
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, sc scope.Scope, id string, req UpdateClassRequest) (*models.SchoolClass, error) {
	class, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Code != nil {
		class.Code = *req.Code
	}
	if req.Level != nil {
		class.Level = *req.Level
	}
	if req.Capacity != nil {
		class.Capacity = req.Capacity
	}
	if req.HomeroomTeacherID != nil {
		if *req.HomeroomTeacherID != "" {
			if _, err := s.users.FindByID(ctx, sc, *req.HomeroomTeacherID); err != nil {
				return nil, refError(err, "homeroomTeacherId", "homeroom teacher not found")
			}
		}
		class.HomeroomTeacherID = req.HomeroomTeacherID
	}

	if err := s.repo.Update(ctx, sc, class); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists in this academic year")
		}
		return nil, appErrors.FromError(err)
	}
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sc, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}
