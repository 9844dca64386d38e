package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
)

type TaskHandler struct {
	Tasks *services.TaskService
	WS    *WSHandler
}

func (h *TaskHandler) view(c *gin.Context, t *models.Task) models.TaskView {
	return services.ToTaskViews([]models.Task{*t}, middleware.ClientToday(c))[0]
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	rng, ranged, keyword, ok := rangeQuery(c)
	if !ok {
		return
	}
	status := strings.TrimSpace(c.Query("status"))
	if !services.IsTaskStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status " + status})
		return
	}

	tasks, err := h.Tasks.ListForCompany(c.Request.Context(), sess, companyParam(c, sess))
	if err != nil {
		respondError(c, err, "list tasks")
		return
	}

	today := middleware.ClientToday(c)
	tasks = services.FilterTasksDue(tasks, rng, ranged, status, today)
	c.JSON(http.StatusOK, gin.H{
		"tasks": services.ToTaskViews(tasks, today),
		"range": keyword,
	})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.TaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.Tasks.Create(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err, "create task")
		return
	}

	h.WS.Broadcast(task.CompanyID, Update{Type: "created", Entity: "task", ID: task.ID, User: sess.UserID})
	c.JSON(http.StatusCreated, h.view(c, task))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	task, err := h.Tasks.Get(c.Request.Context(), sess, c.Param("taskId"))
	if err != nil {
		respondError(c, err, "load task")
		return
	}

	c.JSON(http.StatusOK, h.view(c, task))
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.TaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.Tasks.Update(c.Request.Context(), sess, c.Param("taskId"), req)
	if err != nil {
		respondError(c, err, "update task")
		return
	}

	h.WS.Broadcast(task.CompanyID, Update{Type: "updated", Entity: "task", ID: task.ID, User: sess.UserID})
	c.JSON(http.StatusOK, h.view(c, task))
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.CompleteTaskRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	task, err := h.Tasks.SetCompleted(c.Request.Context(), sess, c.Param("taskId"), req.Completed)
	if err != nil {
		respondError(c, err, "update task")
		return
	}

	h.WS.Broadcast(task.CompanyID, Update{Type: "toggled", Entity: "task", ID: task.ID, User: sess.UserID})
	c.JSON(http.StatusOK, h.view(c, task))
}

func (h *TaskHandler) DismissTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	task, err := h.Tasks.Dismiss(c.Request.Context(), sess, c.Param("taskId"))
	if err != nil {
		respondError(c, err, "dismiss task")
		return
	}

	h.WS.Broadcast(task.CompanyID, Update{Type: "updated", Entity: "task", ID: task.ID, User: sess.UserID})
	c.JSON(http.StatusOK, h.view(c, task))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	task, err := h.Tasks.Delete(c.Request.Context(), sess, c.Param("taskId"))
	if err != nil {
		respondError(c, err, "delete task")
		return
	}

	h.WS.Broadcast(task.CompanyID, Update{Type: "deleted", Entity: "task", ID: task.ID, User: sess.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}
