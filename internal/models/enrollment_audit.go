package models

import "time"

// EnrollmentAction identifies a lifecycle action recorded in the audit trail.
type EnrollmentAction string

const (
	EnrollmentActionAssign   EnrollmentAction = "ASSIGN"
	EnrollmentActionTransfer EnrollmentAction = "TRANSFER"
	EnrollmentActionPromote  EnrollmentAction = "PROMOTE"
	EnrollmentActionWithdraw EnrollmentAction = "WITHDRAW"
)

// EnrollmentAudit is an append-only record of a lifecycle action.
// Rows are inserted in the same transaction as the state change they
// describe and are never updated or deleted.
type EnrollmentAudit struct {
	ID        string           `db:"id" json:"id"`
	TenantID  string           `db:"tenant_id" json:"tenant_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Action    EnrollmentAction `db:"action" json:"action"`
	ActorID   string           `db:"actor_id" json:"actor_id"`

	FromAcademicYearID *string `db:"from_academic_year_id" json:"from_academic_year_id,omitempty"`
	FromClassID        *string `db:"from_class_id" json:"from_class_id,omitempty"`
	FromSectionID      *string `db:"from_section_id" json:"from_section_id,omitempty"`
	ToAcademicYearID   *string `db:"to_academic_year_id" json:"to_academic_year_id,omitempty"`
	ToClassID          *string `db:"to_class_id" json:"to_class_id,omitempty"`
	ToSectionID        *string `db:"to_section_id" json:"to_section_id,omitempty"`

	EffectiveDate time.Time `db:"effective_date" json:"effective_date"`
	Note          *string   `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentAuditFilter narrows audit listings.
type EnrollmentAuditFilter struct {
	StudentID string
	Action    EnrollmentAction
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
