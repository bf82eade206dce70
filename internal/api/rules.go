package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

func validActionType(t model.ActionType) bool {
	for _, valid := range model.ValidActionTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// CreateRule creates an ACOS threshold rule
func (h *Handler) CreateRule(c *gin.Context) {
	var rule model.AcosRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if rule.ThresholdType != model.ThresholdMaximum && rule.ThresholdType != model.ThresholdMinimum {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_type must be maximum or minimum"})
		return
	}
	if rule.ThresholdValue <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_value must be positive"})
		return
	}
	if !validActionType(rule.ActionType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action_type"})
		return
	}
	if rule.WindowHours <= 0 {
		rule.WindowHours = 24
	}

	rule.ID = uuid.New().String()
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := h.store.CreateRule(c.Request.Context(), &rule); err != nil {
		h.logger.Error("Failed to create rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rule"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule retrieves a rule by id
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.store.GetRule(c.Request.Context(), c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListRules lists rules, optionally only enabled ones
func (h *Handler) ListRules(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	rules, err := h.store.ListRules(c.Request.Context(), enabledOnly)
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}
	if rules == nil {
		rules = []*model.AcosRule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// UpdateRule applies a partial update to a rule
func (h *Handler) UpdateRule(c *gin.Context) {
	var update model.AcosRuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	rule, err := h.store.GetRule(ctx, c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rule"})
		return
	}

	update.Apply(rule)
	if rule.ThresholdType != model.ThresholdMaximum && rule.ThresholdType != model.ThresholdMinimum {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_type must be maximum or minimum"})
		return
	}
	if !validActionType(rule.ActionType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action_type"})
		return
	}

	if err := h.store.UpdateRule(ctx, rule); err != nil {
		h.logger.Error("Failed to update rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule removes a rule. Its past executions stay on record.
func (h *Handler) DeleteRule(c *gin.Context) {
	err := h.store.DeleteRule(c.Request.Context(), c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}

// TriggerEvaluation requests one evaluation run. The run executes
// asynchronously off the bus; the response only acknowledges the request.
func (h *Handler) TriggerEvaluation(c *gin.Context) {
	if err := h.trigger.Trigger(c.Request.Context(), c.ClientIP()); err != nil {
		h.logger.Error("Failed to trigger evaluation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger evaluation"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "evaluation triggered"})
}

// ListExecutions lists action executions with optional filters
func (h *Handler) ListExecutions(c *gin.Context) {
	filters := storage.ExecutionFilters{
		RuleID:     c.Query("rule_id"),
		CampaignID: c.Query("campaign_id"),
		Status:     model.ExecutionStatus(c.Query("status")),
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ctx := c.Request.Context()
	executions, err := h.store.ListExecutions(ctx, filters, offset, limit)
	if err != nil {
		h.logger.Error("Failed to list executions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list executions"})
		return
	}
	total, err := h.store.CountExecutions(ctx, filters)
	if err != nil {
		h.logger.Error("Failed to count executions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count executions"})
		return
	}
	if executions == nil {
		executions = []*model.Execution{}
	}
	c.JSON(http.StatusOK, gin.H{
		"executions": executions,
		"total":      total,
		"offset":     offset,
		"limit":      limit,
	})
}
