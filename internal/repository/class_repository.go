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

// ClassRepository handles persistence for school classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, tenant_id, academic_year_id, name, code, level, capacity, homeroom_teacher_id, created_at, updated_at`

// List returns classes for the tenant matching the filter.
func (r *ClassRepository) List(ctx context.Context, sc scope.Scope, filter models.SchoolClassFilter) ([]models.SchoolClass, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := "FROM classes WHERE tenant_id = $1"
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, *filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("lower(name) LIKE $%d", len(args)+1))
		args = append(args, searchPattern(filter.Search))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "code": true, "level": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", classColumns, base, sortBy, order, size, offset)
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID loads a class under the tenant scope.
func (r *ClassRepository) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.SchoolClass, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE tenant_id = $1 AND id = $2`, classColumns)
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, sc.TenantID, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class, stamping the tenant from the scope.
func (r *ClassRepository) Create(ctx context.Context, sc scope.Scope, class *models.SchoolClass) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	class.TenantID = sc.TenantID
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, tenant_id, academic_year_id, name, code, level, capacity, homeroom_teacher_id, created_at, updated_at)
	VALUES (:id, :tenant_id, :academic_year_id, :name, :code, :level, :capacity, :homeroom_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class under the tenant scope.
func (r *ClassRepository) Update(ctx context.Context, sc scope.Scope, class *models.SchoolClass) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	class.TenantID = sc.TenantID
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, code = :code, level = :level, capacity = :capacity,
	homeroom_teacher_id = :homeroom_teacher_id, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a class under the tenant scope.
func (r *ClassRepository) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE tenant_id = $1 AND id = $2`, sc.TenantID, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
