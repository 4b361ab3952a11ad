package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
)

// UserRepository reads staff accounts for actor validation. Account
// creation and credential handling live in the identity service.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, full_name, role, active, created_at, updated_at`

// FindByID loads a user under the tenant scope.
func (r *UserRepository) FindByID(ctx context.Context, sc scope.Scope, id string) (*models.User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND id = $2`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, sc.TenantID, id); err != nil {
		return nil, err
	}
	return &user, nil
}
