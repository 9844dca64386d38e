package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
)

type InvitationHandler struct {
	Invitations *services.InvitationService
	Notifier    *services.Notifier
	WS          *WSHandler
}

// SendInvitation answers 202: the email goes out in the background and a
// delivery failure does not fail the request.
func (h *InvitationHandler) SendInvitation(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.SendInvitationRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.Invitations.Send(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err, "send invitation")
		return
	}

	if h.Notifier != nil {
		h.Notifier.Invitation(*inv)
	}
	h.WS.Broadcast(inv.CompanyID, Update{Type: "created", Entity: "invitation", ID: inv.ID, User: sess.UserID})

	c.JSON(http.StatusAccepted, gin.H{"message": "Invitation sent", "invitation": inv})
}

func (h *InvitationHandler) GetInvitations(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	list, err := h.Invitations.List(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err, "list invitations")
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *InvitationHandler) RespondToInvitation(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.RespondInvitationRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.Invitations.Respond(c.Request.Context(), sess, c.Param("invitationId"), req.Status)
	if err != nil {
		respondError(c, err, "respond to invitation")
		return
	}

	if inv.Status == models.InvitationAccepted {
		h.WS.Broadcast(inv.CompanyID, Update{Type: "created", Entity: "member", ID: sess.UserID, User: sess.UserID})
	}

	c.JSON(http.StatusOK, inv)
}

func (h *InvitationHandler) CancelInvitation(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	if err := h.Invitations.Cancel(c.Request.Context(), sess, c.Param("invitationId")); err != nil {
		respondError(c, err, "cancel invitation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation cancelled"})
}
