package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studiklab/portal-api/internal/service"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT requires a valid bearer access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		authenticate(c, authService, token)
	}
}

// TokenQueryAuth reads the access token from a query parameter instead of
// the Authorization header. Calendar subscription clients fetch the ICS
// feed as a plain URL and cannot attach headers.
func TokenQueryAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		authenticate(c, authService, token)
	}
}

func authenticate(c *gin.Context, authService *service.AuthService, token string) {
	claims, err := authService.ValidateToken(token)
	if err != nil {
		response.Error(c, err)
		c.Abort()
		return
	}
	c.Set(ContextUserKey, claims)
	c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
