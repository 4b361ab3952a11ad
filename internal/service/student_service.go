package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

// studentCodeAttempts bounds retries on a student code collision. The
// counter makes collisions nearly impossible; more than one retry means
// something else is wrong.
const studentCodeAttempts = 2

type studentRepository interface {
	List(ctx context.Context, sc scope.Scope, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Student, error)
	Create(ctx context.Context, sc scope.Scope, student *models.Student) error
	Update(ctx context.Context, sc scope.Scope, student *models.Student) error
}

type counterRepository interface {
	Next(ctx context.Context, sc scope.Scope, key string) (int64, error)
}

// CreateStudentRequest describes student registration payload.
type CreateStudentRequest struct {
	ExternalID string     `json:"external_id" validate:"required"`
	FullName   string     `json:"full_name" validate:"required"`
	Gender     string     `json:"gender" validate:"omitempty,oneof=M F"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Address    string     `json:"address"`
	Phone      string     `json:"phone"`
}

// UpdateStudentRequest describes the mutable student fields.
type UpdateStudentRequest struct {
	ExternalID *string               `json:"external_id,omitempty"`
	FullName   *string               `json:"full_name,omitempty"`
	Gender     *string               `json:"gender,omitempty"`
	BirthDate  *time.Time            `json:"birth_date,omitempty"`
	Address    *string               `json:"address,omitempty"`
	Phone      *string               `json:"phone,omitempty"`
	Status     *models.StudentStatus `json:"status,omitempty"`
}

// StudentService manages student records and mints their tenant-unique codes.
type StudentService struct {
	repo       studentRepository
	counters   counterRepository
	codePrefix string
	codeWidth  int
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, counters counterRepository, codePrefix string, codeWidth int, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codePrefix == "" {
		codePrefix = "STU"
	}
	if codeWidth <= 0 {
		codeWidth = 4
	}
	return &StudentService{repo: repo, counters: counters, codePrefix: codePrefix, codeWidth: codeWidth, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, sc scope.Scope, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, sc scope.Scope, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, sc, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.FromError(err)
	}
	return student, nil
}

// Create registers a student, minting the code from the tenant counter.
// A duplicate-code insert (a concurrent writer racing on the same sequence
// after a counter reset or import) draws a fresh sequence and retries,
// bounded to studentCodeAttempts.
func (s *StudentService) Create(ctx context.Context, sc scope.Scope, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var lastErr error
	for attempt := 0; attempt < studentCodeAttempts; attempt++ {
		code, err := s.mintCode(ctx, sc)
		if err != nil {
			return nil, err
		}

		student := &models.Student{
			StudentCode: code,
			ExternalID:  req.ExternalID,
			FullName:    req.FullName,
			Gender:      req.Gender,
			BirthDate:   req.BirthDate,
			Address:     req.Address,
			Phone:       req.Phone,
			Status:      models.StudentStatusActive,
		}
		if err := s.repo.Create(ctx, sc, student); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				s.logger.Warn("student code collision, retrying",
					zap.String("tenant_id", sc.TenantID), zap.String("student_code", code))
				continue
			}
			return nil, appErrors.FromError(err)
		}
		return student, nil
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate a unique student code")
}

// Update modifies a student record.
func (s *StudentService) Update(ctx context.Context, sc scope.Scope, id string, req UpdateStudentRequest) (*models.Student, error) {
	student, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if req.ExternalID != nil {
		student.ExternalID = *req.ExternalID
	}
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		student.BirthDate = req.BirthDate
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Status != nil {
		student.Status = *req.Status
	}

	if err := s.repo.Update(ctx, sc, student); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student external id already exists")
		}
		return nil, appErrors.FromError(err)
	}
	return student, nil
}

// mintCode draws the next sequence and formats it, e.g. STU2026-0042.
func (s *StudentService) mintCode(ctx context.Context, sc scope.Scope) (string, error) {
	year := time.Now().UTC().Year()
	key := fmt.Sprintf("student_code:%d", year)
	seq, err := s.counters.Next(ctx, sc, key)
	if err != nil {
		return "", appErrors.FromError(err)
	}
	return fmt.Sprintf("%s%d-%0*d", s.codePrefix, year, s.codeWidth, seq), nil
}
