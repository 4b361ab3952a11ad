package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the identity context carried by inbound access tokens.
// Tokens are issued and refreshed by the identity service; this backend only
// verifies the signature and trusts the resolved (tenant, actor, role).
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	jwt.RegisteredClaims
}
