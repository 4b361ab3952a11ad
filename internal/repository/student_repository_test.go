package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
)

func studentRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "student_code", "external_id", "full_name", "search_name", "gender", "birth_date",
		"address", "phone", "status", "academic_year_id", "class_id", "section_id", "created_at", "updated_at",
	}).AddRow("stu-1", "tenant-1", "STU2026-0001", "EXT-1", "Budi Santoso", "budi santoso", "M", nil,
		"", "", models.StudentStatusActive, nil, nil, nil, now, now)
}

func TestStudentRepositoryListSearchLowercasesPrefix(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectQuery(`SELECT .+ FROM students WHERE tenant_id = \$1 AND search_name LIKE \$2 ORDER BY full_name ASC`).
		WithArgs("tenant-1", "bud%").
		WillReturnRows(studentRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE tenant_id = \$1 AND search_name LIKE \$2`).
		WithArgs("tenant-1", "bud%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), sc, models.StudentFilter{Search: "Bud"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "STU2026-0001", students[0].StudentCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateStampsScopeAndSearchName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{
		StudentCode: "STU2026-0001",
		ExternalID:  "EXT-1",
		FullName:    "Budi Santoso",
	}
	err := repo.Create(context.Background(), sc, student)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", student.TenantID)
	assert.Equal(t, "budi santoso", student.SearchName)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectExec("UPDATE students SET external_id").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), sc, &models.Student{ID: "missing", FullName: "X"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListClampsOversizedLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectQuery(`SELECT .+ FROM students WHERE tenant_id = \$1 ORDER BY full_name ASC LIMIT 20 OFFSET 0`).
		WithArgs("tenant-1").
		WillReturnRows(studentRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE tenant_id = \$1`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(200))

	_, total, err := repo.List(context.Background(), sc, models.StudentFilter{Page: 1, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 200, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListSearchEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectQuery(`SELECT .+ FROM students WHERE tenant_id = \$1 AND search_name LIKE \$2`).
		WithArgs("tenant-1", `100\%%`).
		WillReturnRows(studentRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE tenant_id = \$1 AND search_name LIKE \$2`).
		WithArgs("tenant-1", `100\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), sc, models.StudentFilter{Search: "100%"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
