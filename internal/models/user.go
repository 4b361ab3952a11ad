package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleRegistrar  UserRole = "REGISTRAR"
	RoleTeacher    UserRole = "TEACHER"
)

// User represents a staff account owned by a tenant. Credential handling
// (hashing, token issuance) lives in the identity service; this backend only
// reads accounts to validate actors.
type User struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      UserRole  `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"limit"`
	TotalCount int `json:"total"`
	TotalPages int `json:"total_pages"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NormalizePage clamps page and size to the bounds every list query uses.
// The SQL LIMIT/OFFSET and the response metadata must be computed from the
// same normalized values, otherwise a paginating client skips rows.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// NewPagination computes the page count; an empty result still reports one page.
func NewPagination(page, size, total int) *Pagination {
	page, size = NormalizePage(page, size)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}
