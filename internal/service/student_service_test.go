package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

type mockStudentRepo struct {
	createErrs  []error
	createCalls int
	created     []*models.Student
	byID        map[string]*models.Student
	updateErr   error
}

func (m *mockStudentRepo) List(ctx context.Context, sc scope.Scope, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, sc scope.Scope, student *models.Student) error {
	idx := m.createCalls
	m.createCalls++
	m.created = append(m.created, student)
	if idx < len(m.createErrs) {
		return m.createErrs[idx]
	}
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, sc scope.Scope, student *models.Student) error {
	return m.updateErr
}

type mockCounterRepo struct {
	next  int64
	calls int
}

func (m *mockCounterRepo) Next(ctx context.Context, sc scope.Scope, key string) (int64, error) {
	m.calls++
	m.next++
	return m.next, nil
}

func uniqueErr() error {
	return fmt.Errorf("create student: %w", &pq.Error{Code: "23505", Constraint: "students_code_unique"})
}

func TestStudentServiceCreateMintsSequentialCode(t *testing.T) {
	repo := &mockStudentRepo{}
	counters := &mockCounterRepo{next: 41}
	svc := NewStudentService(repo, counters, "STU", 4, nil, zap.NewNop())

	student, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateStudentRequest{
		ExternalID: "EXT-1", FullName: "Budi Santoso",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counters.calls)
	assert.Regexp(t, `^STU\d{4}-0042$`, student.StudentCode)
	assert.Equal(t, models.StudentStatusActive, student.Status)
}

func TestStudentServiceCreateRetriesOnceOnCodeCollision(t *testing.T) {
	repo := &mockStudentRepo{createErrs: []error{uniqueErr()}}
	counters := &mockCounterRepo{}
	svc := NewStudentService(repo, counters, "STU", 4, nil, zap.NewNop())

	student, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateStudentRequest{
		ExternalID: "EXT-1", FullName: "Budi Santoso",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.createCalls)
	assert.Equal(t, 2, counters.calls)
	assert.NotEqual(t, repo.created[0].StudentCode, repo.created[1].StudentCode)
	assert.NotEmpty(t, student.StudentCode)
}

func TestStudentServiceCreateGivesUpAfterBoundedRetries(t *testing.T) {
	repo := &mockStudentRepo{createErrs: []error{uniqueErr(), uniqueErr(), uniqueErr()}}
	counters := &mockCounterRepo{}
	svc := NewStudentService(repo, counters, "STU", 4, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateStudentRequest{
		ExternalID: "EXT-1", FullName: "Budi Santoso",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 500, appErr.Status)
	assert.Equal(t, "failed to allocate a unique student code", appErr.Message)
	assert.Equal(t, studentCodeAttempts, repo.createCalls)
}

func TestStudentServiceCreateNonConflictErrorDoesNotRetry(t *testing.T) {
	repo := &mockStudentRepo{createErrs: []error{fmt.Errorf("create student: connection reset")}}
	counters := &mockCounterRepo{}
	svc := NewStudentService(repo, counters, "STU", 4, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), scope.New("tenant-1"), CreateStudentRequest{
		ExternalID: "EXT-1", FullName: "Budi Santoso",
	})
	require.Error(t, err)
	assert.Equal(t, 1, repo.createCalls)
}

func TestStudentServiceGetUnknownStudent(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockCounterRepo{}, "STU", 4, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), scope.New("tenant-1"), "ghost")
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}
