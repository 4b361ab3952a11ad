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

type enrollmentRepository interface {
	FindActive(ctx context.Context, sc scope.Scope, studentID, academicYearID string) (*models.Enrollment, error)
	Assign(ctx context.Context, sc scope.Scope, enrollment *models.Enrollment, audit *models.EnrollmentAudit) error
	CloseAndOpen(ctx context.Context, sc scope.Scope, currentID string, closeStatus models.EnrollmentStatus, endDate time.Time, next *models.Enrollment, audit *models.EnrollmentAudit) (*models.Enrollment, *models.Enrollment, error)
	Close(ctx context.Context, sc scope.Scope, currentID string, endDate time.Time, actorID string, audit *models.EnrollmentAudit) (*models.Enrollment, error)
	List(ctx context.Context, sc scope.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	History(ctx context.Context, sc scope.Scope, studentID string) ([]models.Enrollment, error)
}

type enrollmentAuditReader interface {
	List(ctx context.Context, sc scope.Scope, filter models.EnrollmentAuditFilter) ([]models.EnrollmentAudit, int, error)
}

// AssignEnrollmentRequest places a student into an academic year.
type AssignEnrollmentRequest struct {
	StudentID      string    `json:"student_id" validate:"required"`
	AcademicYearID string    `json:"academic_year_id" validate:"required"`
	ClassID        string    `json:"class_id" validate:"required"`
	SectionID      *string   `json:"section_id,omitempty"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	Note           *string   `json:"note,omitempty"`
}

// TransferEnrollmentRequest moves a student within the same academic year.
type TransferEnrollmentRequest struct {
	StudentID      string    `json:"student_id" validate:"required"`
	AcademicYearID string    `json:"academic_year_id" validate:"required"`
	ToClassID      string    `json:"to_class_id" validate:"required"`
	ToSectionID    *string   `json:"to_section_id,omitempty"`
	EffectiveDate  time.Time `json:"effective_date" validate:"required"`
	Note           *string   `json:"note,omitempty"`
}

// PromoteEnrollmentRequest moves a student into a different academic year.
type PromoteEnrollmentRequest struct {
	StudentID          string    `json:"student_id" validate:"required"`
	FromAcademicYearID string    `json:"from_academic_year_id" validate:"required"`
	ToAcademicYearID   string    `json:"to_academic_year_id" validate:"required"`
	ToClassID          string    `json:"to_class_id" validate:"required"`
	ToSectionID        *string   `json:"to_section_id,omitempty"`
	EffectiveDate      time.Time `json:"effective_date" validate:"required"`
	Note               *string   `json:"note,omitempty"`
}

// WithdrawEnrollmentRequest terminally closes a student's active enrollment.
type WithdrawEnrollmentRequest struct {
	StudentID      string    `json:"student_id" validate:"required"`
	AcademicYearID string    `json:"academic_year_id" validate:"required"`
	EffectiveDate  time.Time `json:"effective_date" validate:"required"`
	Note           *string   `json:"note,omitempty"`
}

// EnrollmentService executes the enrollment lifecycle. Each operation
// validates its references under the tenant scope, checks the transition
// preconditions against the current ACTIVE row, then delegates the paired
// writes to a single repository transaction.
type EnrollmentService struct {
	repo      enrollmentRepository
	audits    enrollmentAuditReader
	students  studentReader
	users     userReader
	placement placementValidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, audits enrollmentAuditReader, students studentReader, users userReader, years academicYearReader, classes classReader, sections sectionReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		audits:    audits,
		students:  students,
		users:     users,
		placement: placementValidator{years: years, classes: classes, sections: sections},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Assign creates the initial ACTIVE enrollment for (student, academic year).
func (s *EnrollmentService) Assign(ctx context.Context, sc scope.Scope, actorID string, req AssignEnrollmentRequest) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	student, err := s.loadStudent(ctx, sc, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}
	if err := s.validateActor(ctx, sc, actorID); err != nil {
		return nil, err
	}
	refs := placementRefs{AcademicYearID: req.AcademicYearID, ClassID: req.ClassID, SectionID: req.SectionID}
	if err := s.placement.validate(ctx, sc, refs); err != nil {
		return nil, err
	}

	// Pre-check gives the common case a clean conflict; the partial unique
	// index still decides the concurrent race inside the transaction.
	if _, err := s.repo.FindActive(ctx, sc, req.StudentID, req.AcademicYearID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Active enrollment already exists for this student in this academic year")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.FromError(err)
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		ClassID:        req.ClassID,
		SectionID:      req.SectionID,
		Status:         models.EnrollmentStatusActive,
		StartDate:      req.StartDate,
		Note:           req.Note,
		CreatedBy:      actorID,
	}
	audit := &models.EnrollmentAudit{
		StudentID:        req.StudentID,
		Action:           models.EnrollmentActionAssign,
		ActorID:          actorID,
		ToAcademicYearID: &req.AcademicYearID,
		ToClassID:        &req.ClassID,
		ToSectionID:      req.SectionID,
		EffectiveDate:    req.StartDate,
		Note:             req.Note,
	}
	if err := s.repo.Assign(ctx, sc, enrollment, audit); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordTransition(models.EnrollmentActionAssign, sc.TenantID)
	s.logger.Info("student assigned",
		zap.String("tenant_id", sc.TenantID),
		zap.String("student_id", req.StudentID),
		zap.String("academic_year_id", req.AcademicYearID))
	return &models.TransitionResult{Next: enrollment}, nil
}

// Transfer closes the current ACTIVE row as TRANSFERRED and opens a new
// ACTIVE row with the target placement, within the same academic year.
func (s *EnrollmentService) Transfer(ctx context.Context, sc scope.Scope, actorID string, req TransferEnrollmentRequest) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if err := s.validateActor(ctx, sc, actorID); err != nil {
		return nil, err
	}

	current, err := s.loadActive(ctx, sc, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	if current.ClassID == req.ToClassID && sectionEqual(current.SectionID, req.ToSectionID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Transfer target must be different from current class/section")
	}
	if req.EffectiveDate.Before(current.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate cannot be before current enrollment startDate")
	}
	refs := placementRefs{AcademicYearID: req.AcademicYearID, ClassID: req.ToClassID, SectionID: req.ToSectionID}
	if err := s.placement.validate(ctx, sc, refs); err != nil {
		return nil, err
	}

	next := &models.Enrollment{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		ClassID:        req.ToClassID,
		SectionID:      req.ToSectionID,
		Status:         models.EnrollmentStatusActive,
		StartDate:      req.EffectiveDate,
		Note:           req.Note,
		CreatedBy:      actorID,
	}
	audit := &models.EnrollmentAudit{
		StudentID:          req.StudentID,
		Action:             models.EnrollmentActionTransfer,
		ActorID:            actorID,
		FromAcademicYearID: &current.AcademicYearID,
		FromClassID:        &current.ClassID,
		FromSectionID:      current.SectionID,
		ToAcademicYearID:   &req.AcademicYearID,
		ToClassID:          &req.ToClassID,
		ToSectionID:        req.ToSectionID,
		EffectiveDate:      req.EffectiveDate,
		Note:               req.Note,
	}
	closed, opened, err := s.repo.CloseAndOpen(ctx, sc, current.ID, models.EnrollmentStatusTransferred, req.EffectiveDate, next, audit)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordTransition(models.EnrollmentActionTransfer, sc.TenantID)
	s.logger.Info("student transferred",
		zap.String("tenant_id", sc.TenantID),
		zap.String("student_id", req.StudentID),
		zap.String("from_class_id", closed.ClassID),
		zap.String("to_class_id", opened.ClassID))
	return &models.TransitionResult{Previous: closed, Next: opened}, nil
}

// Promote closes the current ACTIVE row as PROMOTED and opens a new ACTIVE
// row in a different academic year.
func (s *EnrollmentService) Promote(ctx context.Context, sc scope.Scope, actorID string, req PromoteEnrollmentRequest) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	if req.ToAcademicYearID == req.FromAcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "toAcademicYearId must be different from fromAcademicYearId")
	}
	if err := s.validateActor(ctx, sc, actorID); err != nil {
		return nil, err
	}

	current, err := s.loadActive(ctx, sc, req.StudentID, req.FromAcademicYearID)
	if err != nil {
		return nil, err
	}
	if req.EffectiveDate.Before(current.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate cannot be before current enrollment startDate")
	}
	refs := placementRefs{AcademicYearID: req.ToAcademicYearID, ClassID: req.ToClassID, SectionID: req.ToSectionID}
	if err := s.placement.validate(ctx, sc, refs); err != nil {
		return nil, err
	}

	next := &models.Enrollment{
		StudentID:      req.StudentID,
		AcademicYearID: req.ToAcademicYearID,
		ClassID:        req.ToClassID,
		SectionID:      req.ToSectionID,
		Status:         models.EnrollmentStatusActive,
		StartDate:      req.EffectiveDate,
		Note:           req.Note,
		CreatedBy:      actorID,
	}
	audit := &models.EnrollmentAudit{
		StudentID:          req.StudentID,
		Action:             models.EnrollmentActionPromote,
		ActorID:            actorID,
		FromAcademicYearID: &current.AcademicYearID,
		FromClassID:        &current.ClassID,
		FromSectionID:      current.SectionID,
		ToAcademicYearID:   &req.ToAcademicYearID,
		ToClassID:          &req.ToClassID,
		ToSectionID:        req.ToSectionID,
		EffectiveDate:      req.EffectiveDate,
		Note:               req.Note,
	}
	closed, opened, err := s.repo.CloseAndOpen(ctx, sc, current.ID, models.EnrollmentStatusPromoted, req.EffectiveDate, next, audit)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordTransition(models.EnrollmentActionPromote, sc.TenantID)
	s.logger.Info("student promoted",
		zap.String("tenant_id", sc.TenantID),
		zap.String("student_id", req.StudentID),
		zap.String("from_academic_year_id", req.FromAcademicYearID),
		zap.String("to_academic_year_id", req.ToAcademicYearID))
	return &models.TransitionResult{Previous: closed, Next: opened}, nil
}

// Withdraw terminally closes the current ACTIVE row with no successor.
func (s *EnrollmentService) Withdraw(ctx context.Context, sc scope.Scope, actorID string, req WithdrawEnrollmentRequest) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdrawal payload")
	}
	if err := s.validateActor(ctx, sc, actorID); err != nil {
		return nil, err
	}

	current, err := s.loadActive(ctx, sc, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	if req.EffectiveDate.Before(current.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate cannot be before current enrollment startDate")
	}

	audit := &models.EnrollmentAudit{
		StudentID:          req.StudentID,
		Action:             models.EnrollmentActionWithdraw,
		ActorID:            actorID,
		FromAcademicYearID: &current.AcademicYearID,
		FromClassID:        &current.ClassID,
		FromSectionID:      current.SectionID,
		EffectiveDate:      req.EffectiveDate,
		Note:               req.Note,
	}
	closed, err := s.repo.Close(ctx, sc, current.ID, req.EffectiveDate, actorID, audit)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordTransition(models.EnrollmentActionWithdraw, sc.TenantID)
	s.logger.Info("student withdrawn",
		zap.String("tenant_id", sc.TenantID),
		zap.String("student_id", req.StudentID),
		zap.String("academic_year_id", req.AcademicYearID))
	return &models.TransitionResult{Previous: closed}, nil
}

// List returns enrollment details with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, sc scope.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	details, total, err := s.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return details, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// History returns a student's full enrollment history, newest first.
func (s *EnrollmentService) History(ctx context.Context, sc scope.Scope, studentID string) ([]models.Enrollment, error) {
	if _, err := s.loadStudent(ctx, sc, studentID); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, sc, studentID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return history, nil
}

// Audits returns lifecycle audit entries with pagination metadata.
func (s *EnrollmentService) Audits(ctx context.Context, sc scope.Scope, filter models.EnrollmentAuditFilter) ([]models.EnrollmentAudit, *models.Pagination, error) {
	audits, total, err := s.audits.List(ctx, sc, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return audits, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *EnrollmentService) loadStudent(ctx context.Context, sc scope.Scope, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, sc, id)
	if err != nil {
		return nil, refError(err, "studentId", "student not found")
	}
	return student, nil
}

func (s *EnrollmentService) loadActive(ctx context.Context, sc scope.Scope, studentID, academicYearID string) (*models.Enrollment, error) {
	current, err := s.repo.FindActive(ctx, sc, studentID, academicYearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for this student in this academic year")
		}
		return nil, appErrors.FromError(err)
	}
	return current, nil
}

func (s *EnrollmentService) validateActor(ctx context.Context, sc scope.Scope, actorID string) error {
	if actorID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "actor is required")
	}
	if _, err := s.users.FindByID(ctx, sc, actorID); err != nil {
		return refError(err, "actorUserId", "actor not found")
	}
	return nil
}

func sectionEqual(a, b *string) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return *a == *b
	}
}
