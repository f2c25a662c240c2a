package middleware

import (
	"github.com/gin-gonic/gin"

	"natours/api/internal/models"
	"natours/api/internal/service"
)

// RequireRoles must run after Protect. Without a resolved user it denies.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current *models.User
		if user, ok := CurrentUser(c); ok {
			current = &user
		}

		if err := service.Authorize(current, roles...); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Next()
	}
}
