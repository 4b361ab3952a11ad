// Package scope carries the request-scoped tenant identifier that every
// data-access operation on tenant-owned tables must be filtered by.
//
// Repositories take a Scope immediately after the context and fail closed
// when it is empty: an unscoped query is a caller bug, never an acceptable
// fallback. Cross-tenant lookups therefore surface as "no rows", which
// services translate to not-found without confirming the row exists under
// another tenant.
package scope

import (
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

// Scope binds data access to a single tenant for the duration of a request.
type Scope struct {
	TenantID string
}

// New returns a scope for the given tenant identifier.
func New(tenantID string) Scope {
	return Scope{TenantID: tenantID}
}

// Validate rejects an empty scope. The returned error maps to HTTP 500:
// a missing tenant identifier indicates a programming error upstream and
// must never silently widen a query to all tenants.
func (s Scope) Validate() error {
	if s.TenantID == "" {
		return appErrors.ErrMissingTenantScope
	}
	return nil
}
