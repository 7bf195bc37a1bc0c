package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/warden-panel/warden/internal/models"
	"github.com/warden-panel/warden/internal/schedule"
)

// ScheduleHandler manages schedule and task definitions.
type ScheduleHandler struct {
	schedules *schedule.Store
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedules *schedule.Store) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// ListSchedules returns all schedules for a server
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.schedules.ListForServer(c.Request.Context(), c.Param("server"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// CreateSchedule creates a schedule on a server
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Cron     string `json:"cron" binding:"required"`
		IsActive *bool  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched := &models.Schedule{
		ServerID: c.Param("server"),
		Name:     req.Name,
		Cron:     req.Cron,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	if err := h.schedules.CreateSchedule(c.Request.Context(), sched); err != nil {
		respondScheduleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sched)
}

// GetSchedule returns a schedule with its tasks
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	sched, ok := h.loadSchedule(c)
	if !ok {
		return
	}

	tasks, err := h.schedules.TasksForSchedule(c.Request.Context(), sched.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule": sched,
		"tasks":    tasks,
	})
}

// UpdateSchedule saves changes to a schedule
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	sched, ok := h.loadSchedule(c)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Cron     string `json:"cron"`
		IsActive *bool  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		sched.Name = req.Name
	}
	if req.Cron != "" {
		sched.Cron = req.Cron
	}
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}

	if err := h.schedules.UpdateSchedule(c.Request.Context(), sched); err != nil {
		respondScheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sched)
}

// DeleteSchedule removes a schedule and its tasks
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	sched, ok := h.loadSchedule(c)
	if !ok {
		return
	}

	if err := h.schedules.DeleteSchedule(c.Request.Context(), sched.ID); err != nil {
		respondScheduleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateTask appends a task to a schedule
func (h *ScheduleHandler) CreateTask(c *gin.Context) {
	sched, ok := h.loadSchedule(c)
	if !ok {
		return
	}

	var req struct {
		SequenceID int    `json:"sequence_id"`
		Action     string `json:"action"`
		Payload    string `json:"payload"`
		TimeOffset int    `json:"time_offset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &models.Task{
		ScheduleID: sched.ID,
		SequenceID: req.SequenceID,
		Action:     req.Action,
		Payload:    req.Payload,
		TimeOffset: req.TimeOffset,
	}

	if err := h.schedules.CreateTask(c.Request.Context(), task); err != nil {
		respondScheduleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListTasks returns a schedule's tasks in execution order
func (h *ScheduleHandler) ListTasks(c *gin.Context) {
	sched, ok := h.loadSchedule(c)
	if !ok {
		return
	}

	tasks, err := h.schedules.TasksForSchedule(c.Request.Context(), sched.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// QueueTask flags a task for the daemon to pick up
func (h *ScheduleHandler) QueueTask(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("task"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return
	}

	if err := h.schedules.MarkTaskQueued(c.Request.Context(), taskID, true); err != nil {
		respondScheduleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// loadSchedule resolves the schedule and rejects one that does not
// belong to the server in the URL.
func (h *ScheduleHandler) loadSchedule(c *gin.Context) (*models.Schedule, bool) {
	sched, err := h.schedules.GetSchedule(c.Request.Context(), c.Param("schedule"))
	if errors.Is(err, schedule.ErrNotFound) || (err == nil && sched.ServerID != c.Param("server")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}

	return sched, true
}

func respondScheduleError(c *gin.Context, err error) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error()})
	case errors.Is(err, schedule.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
