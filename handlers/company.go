package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
)

type CompanyHandler struct {
	Companies *services.CompanyService
	WS        *WSHandler
}

func (h *CompanyHandler) GetCompanies(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companies, err := h.Companies.ListForUser(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err, "list companies")
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}

	c.JSON(http.StatusOK, gin.H{"companies": companies, "current_company_id": sess.CurrentCompanyID})
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.CreateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	company, err := h.Companies.Create(c.Request.Context(), req.Name, sess.UserID)
	if err != nil {
		respondError(c, err, "create company")
		return
	}

	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	company, err := h.Companies.Get(c.Request.Context(), c.Param("id"), sess.UserID)
	if err != nil {
		respondError(c, err, "load company")
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.UpdateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	companyID := c.Param("id")
	company, err := h.Companies.Rename(c.Request.Context(), companyID, sess.UserID, req.Name)
	if err != nil {
		respondError(c, err, "rename company")
		return
	}

	h.WS.Broadcast(companyID, Update{Type: "updated", Entity: "company", ID: companyID, User: sess.UserID})
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	if err := h.Companies.Delete(c.Request.Context(), companyID, sess.UserID); err != nil {
		respondError(c, err, "delete company")
		return
	}

	h.WS.Broadcast(companyID, Update{Type: "deleted", Entity: "company", ID: companyID, User: sess.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Company deleted"})
}

// ============================================================================
// MEMBERS
// ============================================================================

func (h *CompanyHandler) GetMembers(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	members, err := h.Companies.Members(c.Request.Context(), c.Param("id"), sess.UserID)
	if err != nil {
		respondError(c, err, "list members")
		return
	}
	if members == nil {
		members = []models.CompanyMember{}
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *CompanyHandler) LeaveCompany(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	if err := h.Companies.Leave(c.Request.Context(), companyID, sess.UserID); err != nil {
		respondError(c, err, "leave company")
		return
	}

	h.WS.Broadcast(companyID, Update{Type: "deleted", Entity: "member", ID: sess.UserID, User: sess.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "You left the company"})
}

func (h *CompanyHandler) RemoveMember(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companyID, memberID := c.Param("id"), c.Param("userId")
	if memberID == sess.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Use leave to remove yourself"})
		return
	}

	if err := h.Companies.RemoveMember(c.Request.Context(), companyID, sess.UserID, memberID); err != nil {
		respondError(c, err, "remove member")
		return
	}

	h.WS.Broadcast(companyID, Update{Type: "deleted", Entity: "member", ID: memberID, User: sess.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
