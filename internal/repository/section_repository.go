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

// SectionRepository handles persistence for class sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, tenant_id, class_id, name, code, capacity, created_at, updated_at`

// List returns sections for the tenant matching the filter.
func (r *SectionRepository) List(ctx context.Context, sc scope.Scope, filter models.SectionFilter) ([]models.Section, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := "FROM sections WHERE tenant_id = $1"
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("lower(name) LIKE $%d", len(args)+1))
		args = append(args, searchPattern(filter.Search))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", sectionColumns, base, size, offset)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID loads a section under the tenant scope.
func (r *SectionRepository) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Section, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE tenant_id = $1 AND id = $2`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, sc.TenantID, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section, stamping the tenant from the scope.
func (r *SectionRepository) Create(ctx context.Context, sc scope.Scope, section *models.Section) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	section.TenantID = sc.TenantID
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, tenant_id, class_id, name, code, capacity, created_at, updated_at)
	VALUES (:id, :tenant_id, :class_id, :name, :code, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies an existing section under the tenant scope.
func (r *SectionRepository) Update(ctx context.Context, sc scope.Scope, section *models.Section) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	section.TenantID = sc.TenantID
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, code = :code, capacity = :capacity, updated_at = :updated_at
	WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, section)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a section under the tenant scope.
func (r *SectionRepository) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE tenant_id = $1 AND id = $2`, sc.TenantID, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}
