package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type OverviewHandler struct {
	Events *services.EventService
	Tasks  *services.TaskService
}

// GetOverview returns the dashboard statistics of a company for ?range=.
func (h *OverviewHandler) GetOverview(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	rng, ranged, keyword, ok := rangeQuery(c)
	if !ok {
		return
	}

	companyID := companyParam(c, sess)
	events, err := h.Events.ListForCompany(c.Request.Context(), sess, companyID)
	if err != nil {
		respondError(c, err, "load overview")
		return
	}
	tasks, err := h.Tasks.ListForCompany(c.Request.Context(), sess, companyID)
	if err != nil {
		respondError(c, err, "load overview")
		return
	}

	stats := services.ComputeStats(events, tasks, middleware.ClientNow(c), rng, ranged)
	stats.Range = keyword
	stats.FormattedExpenses = utils.FormatCurrency(stats.TotalExpenses, sess.Currency, sess.Language)

	c.JSON(http.StatusOK, stats)
}
