package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

func TestAcademicYearRepositorySetCurrentSwapsInOneTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE tenant_id = $2 AND is_current = TRUE AND id <> $3`)).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "year-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE academic_years SET is_current = TRUE, updated_at = $1 WHERE tenant_id = $2 AND id = $3`)).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "year-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetCurrent(context.Background(), sc, "year-b")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetCurrentUnknownYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)
	sc := scope.New("tenant-1")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE academic_years SET is_current = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE academic_years SET is_current = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), sc, "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryFindByIDScopesTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)
	sc := scope.New("tenant-1")

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "code", "start_date", "end_date", "is_active", "is_current", "created_at", "updated_at"}).
		AddRow("year-1", "tenant-1", "2026/2027", "AY26", now, now.AddDate(1, 0, 0), true, true, now, now)
	mock.ExpectQuery(`SELECT .+ FROM academic_years WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs("tenant-1", "year-1").
		WillReturnRows(rows)

	year, err := repo.FindByID(context.Background(), sc, "year-1")
	require.NoError(t, err)
	assert.Equal(t, "AY26", year.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCrossTenantReadMisses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	// The row exists under tenant-1 but the requester is scoped to tenant-2,
	// so the lookup sees nothing.
	mock.ExpectQuery(`SELECT .+ FROM academic_years WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs("tenant-2", "year-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), scope.New("tenant-2"), "year-1")
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryListRequiresScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	_, _, err := repo.List(context.Background(), scope.Scope{}, models.AcademicYearFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingTenantScope.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
