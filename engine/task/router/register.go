package tkrouter

import (
	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/task/uc"
)

func Register(apiBase *gin.RouterGroup, h *Handler, middleware ...gin.HandlerFunc) {
	tasksGroup := apiBase.Group("/tasks", middleware...)
	{
		// GET /api/v1/tasks
		tasksGroup.GET("", h.listWith(nil))

		// POST /api/v1/tasks
		// Submit a batch of status transitions
		tasksGroup.POST("", h.updateStatuses)

		tasksGroup.GET("/planned", h.listWith(uc.Planned))
		tasksGroup.GET("/active", h.getActive)
		tasksGroup.GET("/completed", h.listWith(uc.Completed))
		tasksGroup.GET("/planned/count", h.countWith(uc.Planned))
		tasksGroup.GET("/completed/count", h.countWith(uc.Completed))

		// GET /api/v1/tasks/:task_id/active-subtask
		tasksGroup.GET("/:task_id/active-subtask", h.getActiveSubtask)

		// GET /api/v1/tasks/:task_id/subtasks
		tasksGroup.GET("/:task_id/subtasks", h.getSubtasks)

		// GET /api/v1/tasks/:task_id/events
		// Status change events of the task
		tasksGroup.GET("/:task_id/events", h.getEvents)
	}
}
