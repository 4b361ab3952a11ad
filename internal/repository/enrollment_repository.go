package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	"github.com/sekola/sekola-api/pkg/database"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

// Constraint names from the migrations; duplicate-key errors against them
// are remapped to conflicts instead of leaking storage error codes.
const (
	constraintActiveEnrollment = "enrollments_active_unique"
)

// ErrActiveEnrollmentExists is returned when the active-enrollment partial
// unique index rejects a second ACTIVE row for the same (student, year).
var ErrActiveEnrollmentExists = appErrors.Clone(appErrors.ErrConflict,
	"Active enrollment already exists for this student in this academic year")

// EnrollmentRepository persists enrollment rows and executes lifecycle
// transitions. Paired close+open writes and their audit entries always run
// inside one transaction; no partial-transition API is exposed.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, tenant_id, student_id, academic_year_id, class_id, section_id, status,
	start_date, end_date, note, created_by, updated_by, created_at, updated_at`

// FindActive returns the single ACTIVE enrollment for (student, year), or
// sql.ErrNoRows when none exists.
func (r *EnrollmentRepository) FindActive(ctx context.Context, sc scope.Scope, studentID, academicYearID string) (*models.Enrollment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM enrollments
	WHERE tenant_id = $1 AND student_id = $2 AND academic_year_id = $3 AND status = $4`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, sc.TenantID, studentID, academicYearID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Assign creates the initial ACTIVE row together with its ASSIGN audit entry
// and the student placement snapshot, all in one transaction. A concurrent
// assignment for the same (student, year) loses on the partial unique index
// and surfaces as a conflict.
func (r *EnrollmentRepository) Assign(ctx context.Context, sc scope.Scope, enrollment *models.Enrollment, audit *models.EnrollmentAudit) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	prepareEnrollment(sc, enrollment)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertEnrollment(ctx, tx, enrollment); err != nil {
		if database.IsUniqueViolation(err, constraintActiveEnrollment) {
			err = ErrActiveEnrollmentExists
		}
		return err
	}
	if err = insertEnrollmentAudit(ctx, tx, sc, audit); err != nil {
		return err
	}
	if err = updateStudentPlacement(ctx, tx, sc, enrollment.StudentID,
		&enrollment.AcademicYearID, &enrollment.ClassID, enrollment.SectionID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assign tx: %w", err)
	}
	return nil
}

// CloseAndOpen atomically closes the current ACTIVE row with the given
// terminal status and opens a successor row. The current row is re-read and
// locked inside the transaction; a concurrent transition that already closed
// it surfaces as a conflict rather than a duplicate or lost write.
func (r *EnrollmentRepository) CloseAndOpen(ctx context.Context, sc scope.Scope, currentID string, closeStatus models.EnrollmentStatus, endDate time.Time, next *models.Enrollment, audit *models.EnrollmentAudit) (*models.Enrollment, *models.Enrollment, error) {
	if err := sc.Validate(); err != nil {
		return nil, nil, err
	}
	prepareEnrollment(sc, next)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	closed, err := closeEnrollment(ctx, tx, sc, currentID, closeStatus, endDate, next.CreatedBy)
	if err != nil {
		return nil, nil, err
	}
	if err = insertEnrollment(ctx, tx, next); err != nil {
		if database.IsUniqueViolation(err, constraintActiveEnrollment) {
			err = ErrActiveEnrollmentExists
		}
		return nil, nil, err
	}
	if err = insertEnrollmentAudit(ctx, tx, sc, audit); err != nil {
		return nil, nil, err
	}
	if err = updateStudentPlacement(ctx, tx, sc, next.StudentID,
		&next.AcademicYearID, &next.ClassID, next.SectionID); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return closed, next, nil
}

// Close terminally closes the current ACTIVE row (withdrawal) with no
// successor, clearing the student placement snapshot in the same transaction.
func (r *EnrollmentRepository) Close(ctx context.Context, sc scope.Scope, currentID string, endDate time.Time, actorID string, audit *models.EnrollmentAudit) (*models.Enrollment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin withdraw tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	closed, err := closeEnrollment(ctx, tx, sc, currentID, models.EnrollmentStatusWithdrawn, endDate, actorID)
	if err != nil {
		return nil, err
	}
	if err = insertEnrollmentAudit(ctx, tx, sc, audit); err != nil {
		return nil, err
	}
	if err = updateStudentPlacement(ctx, tx, sc, closed.StudentID, nil, nil, nil); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit withdraw tx: %w", err)
	}
	return closed, nil
}

// List returns enrollments joined to student, year, class and section
// summaries, newest first, deterministic by (start_date DESC, id DESC).
func (r *EnrollmentRepository) List(ctx context.Context, sc scope.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := `FROM enrollments e
	JOIN students s ON s.id = e.student_id AND s.tenant_id = e.tenant_id
	JOIN academic_years y ON y.id = e.academic_year_id AND y.tenant_id = e.tenant_id
	JOIN classes c ON c.id = e.class_id AND c.tenant_id = e.tenant_id
	LEFT JOIN sections sec ON sec.id = e.section_id AND sec.tenant_id = e.tenant_id
	WHERE e.tenant_id = $1`
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("s.search_name LIKE $%d", len(args)+1))
		args = append(args, searchPattern(filter.Search))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.tenant_id, e.student_id, e.academic_year_id, e.class_id, e.section_id, e.status,
	e.start_date, e.end_date, e.note, e.created_by, e.updated_by, e.created_at, e.updated_at,
	s.full_name AS student_name, s.student_code AS student_code, y.name AS academic_year_name,
	c.name AS class_name, sec.name AS section_name
	%s ORDER BY e.start_date DESC, e.id DESC LIMIT %d OFFSET %d`, base, size, offset)

	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return details, total, nil
}

// History returns every enrollment row for a student, newest first.
func (r *EnrollmentRepository) History(ctx context.Context, sc scope.Scope, studentID string) ([]models.Enrollment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE tenant_id = $1 AND student_id = $2
	ORDER BY start_date DESC, id DESC`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, sc.TenantID, studentID); err != nil {
		return nil, fmt.Errorf("enrollment history: %w", err)
	}
	return enrollments, nil
}

// prepareEnrollment stamps scope and identity defaults onto a row about to
// be inserted. The tenant always comes from the validated scope, never from
// the caller-supplied struct.
func prepareEnrollment(sc scope.Scope, enrollment *models.Enrollment) {
	enrollment.TenantID = sc.TenantID
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.UpdatedBy == "" {
		enrollment.UpdatedBy = enrollment.CreatedBy
	}
}

func insertEnrollment(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	const query = `INSERT INTO enrollments (id, tenant_id, student_id, academic_year_id, class_id, section_id, status,
	start_date, end_date, note, created_by, updated_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :student_id, :academic_year_id, :class_id, :section_id, :status,
	:start_date, :end_date, :note, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// closeEnrollment flips the ACTIVE row to a terminal status. The WHERE
// clause re-checks status inside the transaction: if a concurrent writer
// already closed the row, zero rows return and the caller gets a conflict.
func closeEnrollment(ctx context.Context, tx *sqlx.Tx, sc scope.Scope, id string, status models.EnrollmentStatus, endDate time.Time, actorID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`UPDATE enrollments SET status = $1, end_date = $2, updated_by = $3, updated_at = $4
	WHERE tenant_id = $5 AND id = $6 AND status = $7
	RETURNING %s`, enrollmentColumns)
	var closed models.Enrollment
	err := tx.GetContext(ctx, &closed, query, status, endDate, actorID, time.Now().UTC(),
		sc.TenantID, id, models.EnrollmentStatusActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is no longer active")
		}
		return nil, fmt.Errorf("close enrollment: %w", err)
	}
	return &closed, nil
}

func updateStudentPlacement(ctx context.Context, tx *sqlx.Tx, sc scope.Scope, studentID string, yearID, classID, sectionID *string) error {
	const query = `UPDATE students SET academic_year_id = $1, class_id = $2, section_id = $3, updated_at = $4
	WHERE tenant_id = $5 AND id = $6`
	if _, err := tx.ExecContext(ctx, query, yearID, classID, sectionID, time.Now().UTC(), sc.TenantID, studentID); err != nil {
		return fmt.Errorf("update student placement: %w", err)
	}
	return nil
}
