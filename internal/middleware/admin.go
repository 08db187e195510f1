package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/common"
	"github.com/msgpilot/backend/pkg/jwt"
)

// RequireAdmin checks that the authenticated user carries the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != jwt.RoleAdmin {
			common.ErrorResponse(c, http.StatusForbidden, "Admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
