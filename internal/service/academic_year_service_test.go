package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

type mockAcademicYearRepo struct {
	years       map[string]*models.AcademicYear
	current     *models.AcademicYear
	enrollments map[string]int

	createErr     error
	updateErr     error
	setCurrentErr error
	setCurrentID  string
	deleteCalls   int
	createdYear   *models.AcademicYear
}

func (m *mockAcademicYearRepo) List(ctx context.Context, sc scope.Scope, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	out := make([]models.AcademicYear, 0, len(m.years))
	for _, y := range m.years {
		out = append(out, *y)
	}
	return out, len(out), nil
}

func (m *mockAcademicYearRepo) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error) {
	if y, ok := m.years[id]; ok {
		return y, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAcademicYearRepo) FindCurrent(ctx context.Context, sc scope.Scope) (*models.AcademicYear, error) {
	if m.current == nil {
		return nil, sql.ErrNoRows
	}
	return m.current, nil
}

func (m *mockAcademicYearRepo) Create(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdYear = year
	return nil
}

func (m *mockAcademicYearRepo) Update(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error {
	return m.updateErr
}

func (m *mockAcademicYearRepo) SetCurrent(ctx context.Context, sc scope.Scope, id string) error {
	if m.setCurrentErr != nil {
		return m.setCurrentErr
	}
	m.setCurrentID = id
	for yearID, y := range m.years {
		y.IsCurrent = yearID == id
	}
	return nil
}

func (m *mockAcademicYearRepo) CountEnrollments(ctx context.Context, sc scope.Scope, id string) (int, error) {
	return m.enrollments[id], nil
}

func (m *mockAcademicYearRepo) Delete(ctx context.Context, sc scope.Scope, id string) error {
	m.deleteCalls++
	delete(m.years, id)
	return nil
}

func yearFixture() *mockAcademicYearRepo {
	return &mockAcademicYearRepo{
		years: map[string]*models.AcademicYear{
			"year-1": {
				ID:        "year-1",
				TenantID:  "tenant-1",
				Name:      "2025/2026",
				Code:      "AY2526",
				StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
				IsActive:  true,
				IsCurrent: true,
			},
			"year-2": {
				ID:        "year-2",
				TenantID:  "tenant-1",
				Name:      "2026/2027",
				Code:      "AY2627",
				StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
				IsActive:  true,
			},
		},
		enrollments: map[string]int{},
	}
}

func TestAcademicYearServiceCreateRejectsInvertedDates(t *testing.T) {
	repo := yearFixture()
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateAcademicYearRequest{
		Name:      "2027/2028",
		Code:      "AY2728",
		StartDate: time.Date(2028, 6, 30, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "endDate must be after startDate", appErr.Message)
	assert.Nil(t, repo.createdYear)
}

func TestAcademicYearServiceCreateDuplicateCodeConflicts(t *testing.T) {
	repo := yearFixture()
	repo.createErr = fmt.Errorf("insert academic year: %w", &pq.Error{Code: "23505", Constraint: "academic_years_code_unique"})
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateAcademicYearRequest{
		Name:      "2025/2026",
		Code:      "AY2526",
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, "academic year code already exists", appErr.Message)
}

func TestAcademicYearServiceGetUnknownYear(t *testing.T) {
	svc := NewAcademicYearService(yearFixture(), nil, nil)

	_, err := svc.Get(context.Background(), scope.New("tenant-1"), "year-404")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "academic year not found", appErr.Message)
}

func TestAcademicYearServiceCurrentWhenNoneSet(t *testing.T) {
	repo := yearFixture()
	repo.current = nil
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.Current(context.Background(), scope.New("tenant-1"))

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "no current academic year set", appErr.Message)
}

func TestAcademicYearServiceSetCurrentSwaps(t *testing.T) {
	repo := yearFixture()
	svc := NewAcademicYearService(repo, nil, nil)

	year, err := svc.SetCurrent(context.Background(), scope.New("tenant-1"), "year-2")

	require.NoError(t, err)
	assert.Equal(t, "year-2", repo.setCurrentID)
	assert.True(t, year.IsCurrent)
	assert.False(t, repo.years["year-1"].IsCurrent)
}

func TestAcademicYearServiceSetCurrentUnknownYear(t *testing.T) {
	repo := yearFixture()
	repo.setCurrentErr = sql.ErrNoRows
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.SetCurrent(context.Background(), scope.New("tenant-1"), "year-404")

	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestAcademicYearServiceUpdateKeepsDateInvariant(t *testing.T) {
	repo := yearFixture()
	svc := NewAcademicYearService(repo, nil, nil)

	badEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Update(context.Background(), scope.New("tenant-1"), "year-1", UpdateAcademicYearRequest{
		EndDate: &badEnd,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "endDate must be after startDate", appErr.Message)
}

func TestAcademicYearServiceDeleteBlockedByEnrollments(t *testing.T) {
	repo := yearFixture()
	repo.enrollments["year-1"] = 3
	svc := NewAcademicYearService(repo, nil, nil)

	err := svc.Delete(context.Background(), scope.New("tenant-1"), "year-1")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, "academic year has enrollments and cannot be deleted", appErr.Message)
	assert.Zero(t, repo.deleteCalls)
}

func TestAcademicYearServiceDeleteEmptyYear(t *testing.T) {
	repo := yearFixture()
	svc := NewAcademicYearService(repo, nil, nil)

	err := svc.Delete(context.Background(), scope.New("tenant-1"), "year-2")

	require.NoError(t, err)
	assert.Equal(t, 1, repo.deleteCalls)
}
