package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
)

type UserHandler struct {
	Users *services.UserService
	WS    *WSHandler
}

// ============================================================================
// PROFILE
// ============================================================================

func (h *UserHandler) GetProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	user, err := h.Users.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err, "load profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "memberships": sess.Memberships})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Users.UpdateProfile(c.Request.Context(), sess.UserID, req)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateNotifications(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var patch models.NotificationPreferencesPatch
	if !bindJSON(c, &patch) {
		return
	}

	prefs, err := h.Users.UpdateNotifications(c.Request.Context(), sess.UserID, patch)
	if err != nil {
		respondError(c, err, "update notification preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": prefs})
}

func (h *UserHandler) SetCurrentCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.SetCurrentCompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Users.SetCurrentCompany(c.Request.Context(), sess, req.CompanyID); err != nil {
		respondError(c, err, "switch company")
		return
	}

	c.JSON(http.StatusOK, gin.H{"current_company_id": req.CompanyID})
}

// ============================================================================
// PASSWORD & 2FA
// ============================================================================

func (h *UserHandler) ChangePassword(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Users.ChangePassword(c.Request.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err, "change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated, please log in again"})
}

func (h *UserHandler) Setup2FA(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	resp, err := h.Users.SetupTOTP(c.Request.Context(), sess.UserID, sess.Email)
	if err != nil {
		respondError(c, err, "set up 2FA")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Verify2FA(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Users.EnableTOTP(c.Request.Context(), sess.UserID, req.Code); err != nil {
		respondError(c, err, "enable 2FA")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled"})
}

func (h *UserHandler) Disable2FA(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.DisableTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Users.DisableTOTP(c.Request.Context(), sess.UserID, req.Password, req.Code); err != nil {
		respondError(c, err, "disable 2FA")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled"})
}

// ============================================================================
// ACCOUNT
// ============================================================================

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Users.Delete(c.Request.Context(), sess.UserID, req.Password); err != nil {
		respondError(c, err, "delete account")
		return
	}

	for companyID, role := range sess.Memberships {
		if role == models.RoleOwner {
			h.WS.Broadcast(companyID, Update{Type: "deleted", Entity: "company", ID: companyID, User: sess.UserID})
		} else {
			h.WS.Broadcast(companyID, Update{Type: "deleted", Entity: "member", ID: sess.UserID, User: sess.UserID})
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func (h *UserHandler) ExportData(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	export, err := h.Users.Export(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err, "export account data")
		return
	}

	filename := fmt.Sprintf("dayclap-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, export)
}
