package models

import "time"

// SchoolClass models a class (grade group) inside an academic year.
type SchoolClass struct {
	ID                string    `db:"id" json:"id"`
	TenantID          string    `db:"tenant_id" json:"tenant_id"`
	AcademicYearID    string    `db:"academic_year_id" json:"academic_year_id"`
	Name              string    `db:"name" json:"name"`
	Code              string    `db:"code" json:"code"`
	Level             int       `db:"level" json:"level"`
	Capacity          *int      `db:"capacity" json:"capacity,omitempty"`
	HomeroomTeacherID *string   `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolClassFilter defines filters for listing classes.
type SchoolClassFilter struct {
	AcademicYearID string
	Level          *int
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// Section models a homeroom group inside a class.
type Section struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Capacity  *int      `db:"capacity" json:"capacity,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter defines filters for listing sections.
type SectionFilter struct {
	ClassID  string
	Search   string
	Page     int
	PageSize int
}
