package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/scheduler"
	"github.com/meliguard/acosd/internal/storage"
)

// CreateSchedule registers a cron campaign schedule
func (h *Handler) CreateSchedule(c *gin.Context) {
	var sched model.CampaignSchedule
	if err := c.ShouldBindJSON(&sched); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if sched.CampaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaign_id is required"})
		return
	}
	if sched.Action == model.ScheduleActionResetBudget && sched.Budget <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget is required for reset_budget"})
		return
	}

	err := h.scheduler.AddSchedule(c.Request.Context(), &sched)
	switch {
	case errors.Is(err, scheduler.ErrInvalidExpression), errors.Is(err, scheduler.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	case err != nil:
		h.logger.Error("Failed to create schedule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create schedule"})
		return
	}
	c.JSON(http.StatusCreated, sched)
}

// ListSchedules lists campaign schedules
func (h *Handler) ListSchedules(c *gin.Context) {
	schedules, err := h.scheduler.ListSchedules(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list schedules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list schedules"})
		return
	}
	if schedules == nil {
		schedules = []*model.CampaignSchedule{}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// DeleteSchedule removes a campaign schedule
func (h *Handler) DeleteSchedule(c *gin.Context) {
	err := h.scheduler.RemoveSchedule(c.Request.Context(), c.Param("id"))
	if errors.Is(err, scheduler.ErrScheduleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete schedule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete schedule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule deleted"})
}
