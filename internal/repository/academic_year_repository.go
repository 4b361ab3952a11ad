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

// AcademicYearRepository handles persistence for academic years.
// Every method is tenant-scoped and fails closed without a scope.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

const academicYearColumns = `id, tenant_id, name, code, start_date, end_date, is_active, is_current, created_at, updated_at`

// List returns academic years for the tenant matching the filter.
func (r *AcademicYearRepository) List(ctx context.Context, sc scope.Scope, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := "FROM academic_years WHERE tenant_id = $1"
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("lower(name) LIKE $%d", len(args)+1))
		args = append(args, searchPattern(filter.Search))
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.IsCurrent != nil {
		conditions = append(conditions, fmt.Sprintf("is_current = $%d", len(args)+1))
		args = append(args, *filter.IsCurrent)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "code": true, "start_date": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", academicYearColumns, base, sortBy, order, size, offset)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}
	return years, total, nil
}

// FindByID loads an academic year under the tenant scope.
func (r *AcademicYearRepository) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE tenant_id = $1 AND id = $2`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, sc.TenantID, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindCurrent returns the tenant's current academic year.
func (r *AcademicYearRepository) FindCurrent(ctx context.Context, sc scope.Scope) (*models.AcademicYear, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE tenant_id = $1 AND is_current = TRUE LIMIT 1`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, sc.TenantID); err != nil {
		return nil, err
	}
	return &year, nil
}

// Create inserts a new academic year, stamping the tenant from the scope.
func (r *AcademicYearRepository) Create(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	year.TenantID = sc.TenantID
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, tenant_id, name, code, start_date, end_date, is_active, is_current, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :code, :start_date, :end_date, :is_active, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies an existing academic year under the tenant scope.
func (r *AcademicYearRepository) Update(ctx context.Context, sc scope.Scope, year *models.AcademicYear) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	year.TenantID = sc.TenantID
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, code = :code, start_date = :start_date, end_date = :end_date,
	is_active = :is_active, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, year)
	if err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetCurrent marks one year as current and clears the flag on every other
// year of the tenant inside a single transaction, so readers never observe
// two current years.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE tenant_id = $2 AND is_current = TRUE AND id <> $3`, now, sc.TenantID, id); err != nil {
		return fmt.Errorf("clear current academic year: %w", err)
	}

	var result sql.Result
	if result, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, updated_at = $1 WHERE tenant_id = $2 AND id = $3`, now, sc.TenantID, id); err != nil {
		return fmt.Errorf("set current academic year: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of enrollments referencing the year.
func (r *AcademicYearRepository) CountEnrollments(ctx context.Context, sc scope.Scope, id string) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(*) FROM enrollments WHERE tenant_id = $1 AND academic_year_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sc.TenantID, id); err != nil {
		return 0, fmt.Errorf("count year enrollments: %w", err)
	}
	return count, nil
}

// Delete removes an academic year under the tenant scope.
func (r *AcademicYearRepository) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE tenant_id = $1 AND id = $2`, sc.TenantID, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}
