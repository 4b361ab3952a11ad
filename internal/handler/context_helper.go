package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sekola/sekola-api/internal/middleware"
	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// scopeFromContext retrieves the tenant scope set by the tenant middleware.
// A handler reached without one is a wiring bug, reported as internal.
func scopeFromContext(c *gin.Context) (scope.Scope, error) {
	value, exists := c.Get(middleware.ContextScopeKey)
	if !exists {
		return scope.Scope{}, appErrors.ErrMissingTenantScope
	}
	sc, ok := value.(scope.Scope)
	if !ok || sc.TenantID == "" {
		return scope.Scope{}, appErrors.ErrMissingTenantScope
	}
	return sc, nil
}

// actorFromContext returns the acting user's id from the JWT claims.
func actorFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
