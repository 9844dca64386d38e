package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
)

type NotificationHandler struct {
	Push     *services.PushService
	Notifier *services.Notifier
}

// GetVAPIDPublicKey is public: the service worker needs it before login.
func (h *NotificationHandler) GetVAPIDPublicKey(c *gin.Context) {
	if !h.Push.Configured() {
		respondError(c, services.ErrNotConfigured, "load push key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.Push.PublicKey()})
}

func (h *NotificationHandler) Subscribe(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var sub models.PushSubscription
	if !bindJSON(c, &sub) {
		return
	}

	if err := h.Push.Subscribe(c.Request.Context(), sess.UserID, sub); err != nil {
		respondError(c, err, "save push subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push notifications enabled"})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	if err := h.Push.Unsubscribe(c.Request.Context(), sess.UserID); err != nil {
		respondError(c, err, "remove push subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push notifications disabled"})
}

// TaskAssigned lets clients notify an assignee explicitly. The caller is
// recorded as the assigner whatever the body says.
func (h *NotificationHandler) TaskAssigned(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var notice models.TaskAssignedNotice
	if !bindJSON(c, &notice) {
		return
	}
	notice.AssignedByEmail = sess.Email
	if notice.AssignedByName == "" {
		notice.AssignedByName = sess.Name
	}

	if err := h.Notifier.TaskAssigned(c.Request.Context(), notice); err != nil {
		respondError(c, err, "send task notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification sent"})
}
