package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/studiklab/portal-api/internal/models"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/response"
)

// RBAC gates a route by role name. The sentinel "SELF" additionally lets a
// caller through when the :id path parameter is their own user id.
func RBAC(allowed ...string) gin.HandlerFunc {
	roles := make(map[models.UserRole]struct{}, len(allowed))
	allowSelf := false
	for _, name := range allowed {
		if name == "SELF" {
			allowSelf = true
		} else {
			roles[models.UserRole(name)] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserKey)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := value.(*models.JWTClaims)

		if _, ok := roles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf && c.Param("id") == claims.UserID && claims.UserID != "" {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles gates a route by typed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return RBAC(names...)
}
