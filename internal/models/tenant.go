package models

import "time"

// Tenant represents an isolated school. Every other entity is owned by
// exactly one tenant and carries its identifier.
type Tenant struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TenantFilter captures filtering criteria for listing tenants.
type TenantFilter struct {
	Search   string
	IsActive *bool
	Page     int
	PageSize int
}
