package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/utils"
)

// AdminChecker is satisfied by *config.Config.
type AdminChecker interface {
	IsAdmin(email string) bool
}

// RequireAdmin restricts a route group to the configured admin emails.
func RequireAdmin(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := GetUserEmail(c)
		if email == "" || !admins.IsAdmin(email) {
			utils.SafeWarn("Admin access denied for %s on %s", email, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
