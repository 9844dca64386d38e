package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const ContextSession = "session"

// SessionLoader is satisfied by services.UserService.
type SessionLoader interface {
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
}

// LoadSession resolves the authenticated user's profile and memberships
// once per request. It must run after AuthMiddleware.
func LoadSession(loader SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}
		sess, err := loader.LoadSession(c.Request.Context(), userID)
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
			return
		}
		if err != nil {
			utils.SafeError("Load session for %s: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// GetSession returns the session set by LoadSession, nil when absent.
func GetSession(c *gin.Context) *models.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*models.Session)
	return sess
}
