package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	"github.com/sekola/sekola-api/internal/service"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
	"github.com/sekola/sekola-api/pkg/response"
)

// ContextScopeKey is the gin context key storing the resolved tenant scope.
const ContextScopeKey = "tenantScope"

// TenantContext resolves the tenant from the configured header (falling back
// to the token's tenant claim) and stores the scope for downstream handlers.
// Every domain route sits behind this; a request that reaches a handler
// without a scope is rejected by the repository layer.
func TenantContext(tenants *service.TenantService, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idOrSlug := c.GetHeader(header)
		if idOrSlug == "" {
			if claims := claimsFromContext(c); claims != nil {
				idOrSlug = claims.TenantID
			}
		}
		if idOrSlug == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tenant identifier is required"))
			c.Abort()
			return
		}

		tenant, err := tenants.Resolve(c.Request.Context(), idOrSlug)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if claims := claimsFromContext(c); claims != nil && claims.TenantID != "" && claims.TenantID != tenant.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token does not belong to this tenant"))
			c.Abort()
			return
		}

		c.Set(ContextScopeKey, scope.New(tenant.ID))
		c.Set("tenant_id", tenant.ID)
		c.Next()
	}
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
