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
)

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, tenant_id, student_code, external_id, full_name, search_name, gender, birth_date,
	address, phone, status, academic_year_id, class_id, section_id, created_at, updated_at`

// List returns students for the tenant matching the filter. Search is a
// prefix match against the pre-lowercased search_name column.
func (r *StudentRepository) List(ctx context.Context, sc scope.Scope, filter models.StudentFilter) ([]models.Student, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := "FROM students WHERE tenant_id = $1"
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("search_name LIKE $%d", len(args)+1))
		args = append(args, searchPattern(filter.Search))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"full_name": true, "student_code": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, sortBy, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID loads a student under the tenant scope.
func (r *StudentRepository) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Student, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM students WHERE tenant_id = $1 AND id = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, sc.TenantID, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student, stamping the tenant from the scope and
// maintaining the lowercase search column.
func (r *StudentRepository) Create(ctx context.Context, sc scope.Scope, student *models.Student) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	student.TenantID = sc.TenantID
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	student.SearchName = strings.ToLower(student.FullName)
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, tenant_id, student_code, external_id, full_name, search_name, gender, birth_date,
	address, phone, status, academic_year_id, class_id, section_id, created_at, updated_at)
	VALUES (:id, :tenant_id, :student_code, :external_id, :full_name, :search_name, :gender, :birth_date,
	:address, :phone, :status, :academic_year_id, :class_id, :section_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student under the tenant scope.
func (r *StudentRepository) Update(ctx context.Context, sc scope.Scope, student *models.Student) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	student.TenantID = sc.TenantID
	student.SearchName = strings.ToLower(student.FullName)
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET external_id = :external_id, full_name = :full_name, search_name = :search_name,
	gender = :gender, birth_date = :birth_date, address = :address, phone = :phone, status = :status,
	updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
