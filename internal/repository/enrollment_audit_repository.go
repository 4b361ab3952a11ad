package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
)

// EnrollmentAuditRepository reads the append-only enrollment audit trail.
// Inserts only ever happen inside enrollment transition transactions, via
// insertEnrollmentAudit; no update or delete statement exists for this table.
type EnrollmentAuditRepository struct {
	db *sqlx.DB
}

// NewEnrollmentAuditRepository constructs the repository.
func NewEnrollmentAuditRepository(db *sqlx.DB) *EnrollmentAuditRepository {
	return &EnrollmentAuditRepository{db: db}
}

const enrollmentAuditColumns = `id, tenant_id, student_id, action, actor_id,
	from_academic_year_id, from_class_id, from_section_id,
	to_academic_year_id, to_class_id, to_section_id,
	effective_date, note, created_at`

// List returns audit entries for the tenant, newest first.
func (r *EnrollmentAuditRepository) List(ctx context.Context, sc scope.Scope, filter models.EnrollmentAuditFilter) ([]models.EnrollmentAudit, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}

	base := "FROM enrollment_audits WHERE tenant_id = $1"
	args := []interface{}{sc.TenantID}
	var conditions []string

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("effective_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("effective_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", enrollmentAuditColumns, base, size, offset)
	var audits []models.EnrollmentAudit
	if err := r.db.SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment audits: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment audits: %w", err)
	}
	return audits, total, nil
}

// insertEnrollmentAudit appends an audit row inside an open transaction.
// Failing the insert fails the whole transition: committed state and audit
// history must never diverge.
func insertEnrollmentAudit(ctx context.Context, tx *sqlx.Tx, sc scope.Scope, audit *models.EnrollmentAudit) error {
	audit.TenantID = sc.TenantID
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_audits (id, tenant_id, student_id, action, actor_id,
	from_academic_year_id, from_class_id, from_section_id,
	to_academic_year_id, to_class_id, to_section_id,
	effective_date, note, created_at)
	VALUES (:id, :tenant_id, :student_id, :action, :actor_id,
	:from_academic_year_id, :from_class_id, :from_section_id,
	:to_academic_year_id, :to_class_id, :to_section_id,
	:effective_date, :note, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("insert enrollment audit: %w", err)
	}
	return nil
}
