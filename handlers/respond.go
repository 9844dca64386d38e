package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// respondError maps service errors to HTTP responses. Unexpected errors
// are logged and answered with a short message.
func respondError(c *gin.Context, err error, action string) {
	var cooldown *services.CooldownError
	switch {
	case errors.As(err, &cooldown):
		c.Header("Retry-After", strconv.Itoa(cooldown.RetryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               cooldown.Error(),
			"retry_after_seconds": cooldown.RetryAfterSeconds(),
			"next_allowed_at":     cooldown.NextAllowedAt,
		})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to do this"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrOwnerCannotLeave):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyMember), errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTOTPRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "requires_2fa": true})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidTOTP),
		errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": action + ": service not configured"})
	default:
		utils.SafeError("Failed to %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// bindJSON answers 400 itself when the body does not bind.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// session returns the request session or answers 401.
func session(c *gin.Context) (*models.Session, bool) {
	sess := middleware.GetSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return sess, true
}

// companyParam is the :id path parameter, or the caller's current company
// for routes without one.
func companyParam(c *gin.Context, sess *models.Session) string {
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Query("company_id")); id != "" {
		return id
	}
	return sess.CurrentCompanyID
}

// rangeQuery reads ?range= in the client's zone. ok is false (and 400 is
// sent) for unknown keywords.
func rangeQuery(c *gin.Context) (rng utils.DateRange, ranged bool, keyword string, ok bool) {
	keyword = strings.TrimSpace(c.Query("range"))
	if keyword != "" && keyword != utils.RangeAll && !utils.IsRangeKeyword(keyword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown range " + strconv.Quote(keyword)})
		return rng, false, keyword, false
	}
	rng, ranged = utils.GetRangeBoundary(keyword, middleware.ClientNow(c))
	if keyword == "" {
		keyword = utils.RangeAll
	}
	return rng, ranged, keyword, true
}
