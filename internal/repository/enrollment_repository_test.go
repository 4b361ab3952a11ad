package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows(e models.Enrollment) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "academic_year_id", "class_id", "section_id", "status",
		"start_date", "end_date", "note", "created_by", "updated_by", "created_at", "updated_at",
	}).AddRow(e.ID, e.TenantID, e.StudentID, e.AcademicYearID, e.ClassID, e.SectionID, e.Status,
		e.StartDate, e.EndDate, e.Note, e.CreatedBy, e.UpdatedBy, e.CreatedAt, e.UpdatedAt)
}

func TestEnrollmentRepositoryFindActiveRequiresScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	_, err := repo.FindActive(context.Background(), scope.Scope{}, "stu-1", "year-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMissingTenantScope.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindActiveScopesTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	active := models.Enrollment{
		ID: "enr-1", TenantID: "tenant-1", StudentID: "stu-1", AcademicYearID: "year-1",
		ClassID: "class-1", Status: models.EnrollmentStatusActive,
		StartDate: time.Now().UTC(), CreatedBy: "usr-1", UpdatedBy: "usr-1",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery(`SELECT .+ FROM enrollments\s+WHERE tenant_id = \$1 AND student_id = \$2 AND academic_year_id = \$3 AND status = \$4`).
		WithArgs("tenant-1", "stu-1", "year-1", models.EnrollmentStatusActive).
		WillReturnRows(enrollmentRows(active))

	found, err := repo.FindActive(context.Background(), sc, "stu-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAssignCommitsAuditAndPlacement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollment_audits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET academic_year_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{
		StudentID: "stu-1", AcademicYearID: "year-1", ClassID: "class-1",
		StartDate: time.Now().UTC(), CreatedBy: "usr-1",
	}
	audit := &models.EnrollmentAudit{
		StudentID: "stu-1", Action: models.EnrollmentActionAssign, ActorID: "usr-1",
		EffectiveDate: enrollment.StartDate,
	}
	err := repo.Assign(context.Background(), sc, enrollment, audit)
	require.NoError(t, err)

	// Scope stamping happens in the repository, not the caller.
	assert.Equal(t, "tenant-1", enrollment.TenantID)
	assert.Equal(t, "tenant-1", audit.TenantID)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAssignDuplicateActiveConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_active_unique"})
	mock.ExpectRollback()

	enrollment := &models.Enrollment{
		StudentID: "stu-1", AcademicYearID: "year-1", ClassID: "class-1",
		StartDate: time.Now().UTC(), CreatedBy: "usr-1",
	}
	err := repo.Assign(context.Background(), sc, enrollment, &models.EnrollmentAudit{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, "Active enrollment already exists for this student in this academic year", appErr.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCloseAndOpenTransitions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	endDate := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	closed := models.Enrollment{
		ID: "enr-1", TenantID: "tenant-1", StudentID: "stu-1", AcademicYearID: "year-1",
		ClassID: "class-1", Status: models.EnrollmentStatusTransferred,
		StartDate: endDate.AddDate(0, -3, 0), EndDate: &endDate,
		CreatedBy: "usr-1", UpdatedBy: "usr-1",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE enrollments SET status").WillReturnRows(enrollmentRows(closed))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollment_audits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET academic_year_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next := &models.Enrollment{
		StudentID: "stu-1", AcademicYearID: "year-1", ClassID: "class-2",
		StartDate: endDate, CreatedBy: "usr-1",
	}
	gotClosed, gotNext, err := repo.CloseAndOpen(context.Background(), sc, "enr-1",
		models.EnrollmentStatusTransferred, endDate, next, &models.EnrollmentAudit{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusTransferred, gotClosed.Status)
	assert.Equal(t, "class-2", gotNext.ClassID)
	assert.Equal(t, "tenant-1", gotNext.TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCloseAlreadyClosedConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE enrollments SET status").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Close(context.Background(), sc, "enr-1", time.Now().UTC(), "usr-1", &models.EnrollmentAudit{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, "enrollment is no longer active", appErr.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdrawClearsPlacement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	endDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	closed := models.Enrollment{
		ID: "enr-1", TenantID: "tenant-1", StudentID: "stu-1", AcademicYearID: "year-1",
		ClassID: "class-1", Status: models.EnrollmentStatusWithdrawn,
		StartDate: endDate.AddDate(0, -5, 0), EndDate: &endDate,
		CreatedBy: "usr-1", UpdatedBy: "usr-1",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE enrollments SET status").WillReturnRows(enrollmentRows(closed))
	mock.ExpectExec("INSERT INTO enrollment_audits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET academic_year_id").
		WithArgs(nil, nil, nil, sqlmock.AnyArg(), "tenant-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Close(context.Background(), sc, "enr-1", endDate, "usr-1", &models.EnrollmentAudit{
		StudentID: "stu-1", Action: models.EnrollmentActionWithdraw, ActorID: "usr-1", EffectiveDate: endDate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryHistoryOrdersNewestFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	sc := scope.New("tenant-1")

	now := time.Now().UTC()
	end := now.AddDate(0, -6, 0)
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "academic_year_id", "class_id", "section_id", "status",
		"start_date", "end_date", "note", "created_by", "updated_by", "created_at", "updated_at",
	}).
		AddRow("enr-2", "tenant-1", "stu-1", "year-2", "class-2", nil, models.EnrollmentStatusActive, now, nil, nil, "usr-1", "usr-1", now, now).
		AddRow("enr-1", "tenant-1", "stu-1", "year-1", "class-1", nil, models.EnrollmentStatusPromoted, now.AddDate(-1, 0, 0), &end, nil, "usr-1", "usr-1", now, now)

	mock.ExpectQuery(`SELECT .+ FROM enrollments WHERE tenant_id = \$1 AND student_id = \$2\s+ORDER BY start_date DESC, id DESC`).
		WithArgs("tenant-1", "stu-1").
		WillReturnRows(rows)

	history, err := repo.History(context.Background(), sc, "stu-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "enr-2", history[0].ID)
	assert.Equal(t, "enr-1", history[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
