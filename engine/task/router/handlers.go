package tkrouter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/auth/userctx"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/engine/task/uc"
)

// Handler serves the task endpoints for the authenticated user.
type Handler struct {
	list            *uc.ListTasks
	update          *uc.UpdateStatuses
	statusEventKind string
}

func NewHandler(list *uc.ListTasks, update *uc.UpdateStatuses, statusEventKind string) *Handler {
	return &Handler{list: list, update: update, statusEventKind: statusEventKind}
}

func (h *Handler) listWith(filter uc.Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		tasks, err := h.list.Execute(c.Request.Context(), userID, filter)
		if err != nil {
			respondTaskError(c, err)
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

// getActive returns the first task in progress, or an empty object.
func (h *Handler) getActive(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	active, err := h.list.Active(c.Request.Context(), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	if active == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, active)
}

func (h *Handler) countWith(filter uc.Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		n, err := h.list.Count(c.Request.Context(), userID, filter)
		if err != nil {
			respondTaskError(c, err)
			return
		}
		c.JSON(http.StatusOK, CountResponse{Count: n})
	}
}

// getActiveSubtask returns the task's subtask in progress, or an empty object.
func (h *Handler) getActiveSubtask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	sub, err := h.list.ActiveSubtask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) getSubtasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	subtasks, err := h.list.Subtasks(c.Request.Context(), userID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

func (h *Handler) getEvents(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	events, err := h.list.StatusEvents(c.Request.Context(), userID, taskID, h.statusEventKind)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// updateStatuses validates the submitted batch, records it and responds with
// the refreshed task list.
func (h *Handler) updateStatuses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateStatusesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	transitions, err := req.transitions()
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	tasks, err := h.update.Execute(c.Request.Context(), &uc.UpdateStatusesInput{
		UserID:      userID,
		Transitions: transitions,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := userctx.UserIDFromContext(c.Request.Context())
	if !ok {
		router.RespondProblemWithCode(c, http.StatusUnauthorized, router.ErrUnauthorizedCode, "authentication required")
		return 0, false
	}
	return userID, true
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "task_id must be a positive integer")
		return 0, false
	}
	return id, true
}
