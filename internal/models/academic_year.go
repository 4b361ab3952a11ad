package models

import "time"

// AcademicYear models a school year within a tenant's calendar.
// At most one year per tenant carries is_current = true; the flag flips
// exclusively through the transactional SetCurrent operation.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AcademicYearFilter defines filters supported by list endpoints.
type AcademicYearFilter struct {
	Search    string
	IsActive  *bool
	IsCurrent *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
