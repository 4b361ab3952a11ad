package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment row.
// ACTIVE is the only non-terminal state. Rows are never deleted; a
// superseded row keeps its terminal status so history is preserved.
type EnrollmentStatus string

const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusPromoted    EnrollmentStatus = "PROMOTED"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
)

// Enrollment captures a student's placement in an academic year.
// At most one row per (tenant, student, academic year) may be ACTIVE,
// enforced by a partial unique index at the storage layer.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	TenantID       string           `db:"tenant_id" json:"tenant_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	SectionID      *string          `db:"section_id" json:"section_id,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	EndDate        *time.Time       `db:"end_date" json:"end_date,omitempty"`
	Note           *string          `db:"note" json:"note,omitempty"`
	CreatedBy      string           `db:"created_by" json:"created_by"`
	UpdatedBy      string           `db:"updated_by" json:"updated_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with joined summaries.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string  `db:"student_name" json:"student_name"`
	StudentCode      string  `db:"student_code" json:"student_code"`
	AcademicYearName string  `db:"academic_year_name" json:"academic_year_name"`
	ClassName        string  `db:"class_name" json:"class_name"`
	SectionName      *string `db:"section_name" json:"section_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID      string
	AcademicYearID string
	ClassID        string
	SectionID      string
	Status         EnrollmentStatus
	Search         string
	Page           int
	PageSize       int
}

// TransitionResult reports both sides of a lifecycle transition.
// Previous is nil for an initial assignment; Next is nil for a withdrawal.
type TransitionResult struct {
	Previous *Enrollment `json:"previous,omitempty"`
	Next     *Enrollment `json:"next,omitempty"`
}
