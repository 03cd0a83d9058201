package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"deal-chain.backend/internal/domain/entities"
	"deal-chain.backend/pkg/jwt"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey = "principal"
)

// AuthMiddleware verifies the platform bearer token and injects the
// authenticated principal into the request context. The token is issued by
// the identity service; this backend only verifies it.
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication token is required.",
			})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(PrincipalKey, &entities.Principal{ID: claims.UserID, Email: claims.Email})
		c.Next()
	}
}

// GetPrincipal gets the authenticated principal from context
func GetPrincipal(c *gin.Context) (*entities.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}
	principal, ok := v.(*entities.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}
