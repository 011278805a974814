// Package handlers holds admin HTTP handlers that wrap background services.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/93bx/vidsrc-stremio-addon/internal/scheduler"
)

// SchedulerHandler exposes scheduled maintenance tasks.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched}
}

// RegisterRoutes registers task routes.
func (h *SchedulerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListTasks)
	g.GET("/:id", h.GetTask)
	g.POST("/:id/run", h.RunTask)
}

// ListTasks returns all scheduled tasks.
// GET /api/v1/tasks
func (h *SchedulerHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.ListTasks())
}

// GetTask returns one task.
// GET /api/v1/tasks/:id
func (h *SchedulerHandler) GetTask(c echo.Context) error {
	task, err := h.scheduler.GetTask(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, task)
}

// RunTask triggers a task immediately.
// POST /api/v1/tasks/:id/run
func (h *SchedulerHandler) RunTask(c echo.Context) error {
	taskID := c.Param("id")
	err := h.scheduler.RunNow(taskID)
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, scheduler.ErrTaskRunning):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Task started",
		"taskId":  taskID,
	})
}
