package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type AuthHandler struct {
	Auth     *services.AuthService
	Notifier *services.Notifier
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		utils.LogAuthAction("Signup", req.Email, false)
		respondError(c, err, "create account")
		return
	}

	if h.Notifier != nil {
		h.Notifier.Welcome(resp.User)
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "log in")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": resp.AccessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, err, "log out")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
