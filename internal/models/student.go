package models

import "time"

// StudentStatus represents the registration state of a student.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student represents a learner registered under a tenant.
// StudentCode is system-generated and unique per tenant; ExternalID is the
// externally supplied registration number.
type Student struct {
	ID          string        `db:"id" json:"id"`
	TenantID    string        `db:"tenant_id" json:"tenant_id"`
	StudentCode string        `db:"student_code" json:"student_code"`
	ExternalID  string        `db:"external_id" json:"external_id"`
	FullName    string        `db:"full_name" json:"full_name"`
	SearchName  string        `db:"search_name" json:"-"`
	Gender      string        `db:"gender" json:"gender"`
	BirthDate   *time.Time    `db:"birth_date" json:"birth_date,omitempty"`
	Address     string        `db:"address" json:"address"`
	Phone       string        `db:"phone" json:"phone"`
	Status      StudentStatus `db:"status" json:"status"`

	// Current placement snapshot, maintained by enrollment transitions.
	AcademicYearID *string `db:"academic_year_id" json:"academic_year_id,omitempty"`
	ClassID        *string `db:"class_id" json:"class_id,omitempty"`
	SectionID      *string `db:"section_id" json:"section_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	Status         StudentStatus
	AcademicYearID string
	ClassID        string
	SectionID      string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
