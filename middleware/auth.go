package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/utils"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authenticate(c *gin.Context, token string) bool {
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return false
	}
	claims, err := utils.ParseAccessToken(token)
	if err != nil {
		utils.SafeDebug("Rejected token: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, strings.ToLower(claims.Email))
	return true
}

// AuthMiddleware requires a valid "Authorization: Bearer <jwt>" header.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, bearerToken(c)) {
			c.Next()
		}
	}
}

// WSAuthMiddleware also accepts the token as a ?token= query parameter,
// since browsers cannot set headers on WebSocket upgrades.
func WSAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if authenticate(c, token) {
			c.Next()
		}
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
