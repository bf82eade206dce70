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

var validOperators = map[model.Operator]bool{
	model.OpGreaterThan:  true,
	model.OpGreaterEqual: true,
	model.OpLessThan:     true,
	model.OpLessEqual:    true,
	model.OpEqual:        true,
	model.OpNotEqual:     true,
}

var validMetrics = map[model.MetricName]bool{
	model.MetricAcos:    true,
	model.MetricSpend:   true,
	model.MetricRevenue: true,
	model.MetricCPC:     true,
	model.MetricBudget:  true,
}

func validateAlertRule(rule *model.AlertRule) string {
	if !validMetrics[rule.Metric] {
		return "unknown metric"
	}
	if !validOperators[rule.Operator] {
		return "unknown operator"
	}
	switch rule.Severity {
	case model.AlertSeverityLow, model.AlertSeverityMedium, model.AlertSeverityHigh, model.AlertSeverityCritical:
	default:
		return "unknown severity"
	}
	if rule.CooldownMinutes < 0 {
		return "cooldown_minutes must be non-negative"
	}
	return ""
}

// CreateAlertRule creates a generic metric alert rule
func (h *Handler) CreateAlertRule(c *gin.Context) {
	var rule model.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := validateAlertRule(&rule); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rule.ID = uuid.New().String()
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.LastTriggered = nil

	if err := h.store.CreateAlertRule(c.Request.Context(), &rule); err != nil {
		h.logger.Error("Failed to create alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert rule"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetAlertRule retrieves an alert rule by id
func (h *Handler) GetAlertRule(c *gin.Context) {
	rule, err := h.store.GetAlertRule(c.Request.Context(), c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get alert rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListAlertRules lists alert rules
func (h *Handler) ListAlertRules(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	rules, err := h.store.ListAlertRules(c.Request.Context(), enabledOnly)
	if err != nil {
		h.logger.Error("Failed to list alert rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert rules"})
		return
	}
	if rules == nil {
		rules = []*model.AlertRule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// UpdateAlertRule replaces an alert rule's definition. The cooldown stamp
// survives the update so an edit cannot re-fire a rule early.
func (h *Handler) UpdateAlertRule(c *gin.Context) {
	var update model.AlertRule
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := validateAlertRule(&update); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.store.GetAlertRule(ctx, c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get alert rule"})
		return
	}

	update.ID = existing.ID
	update.CreatedAt = existing.CreatedAt
	update.LastTriggered = existing.LastTriggered
	update.UpdatedAt = time.Now()

	if err := h.store.UpdateAlertRule(ctx, &update); err != nil {
		h.logger.Error("Failed to update alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert rule"})
		return
	}
	c.JSON(http.StatusOK, update)
}

// DeleteAlertRule removes an alert rule
func (h *Handler) DeleteAlertRule(c *gin.Context) {
	err := h.store.DeleteAlertRule(c.Request.Context(), c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alert rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert rule deleted"})
}

// ListAlerts lists raised alerts, newest first
func (h *Handler) ListAlerts(c *gin.Context) {
	unresolvedOnly := c.Query("unresolved") == "true"
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	alerts, err := h.store.ListAlerts(c.Request.Context(), unresolvedOnly, offset, limit)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ResolveAlert marks an alert resolved
func (h *Handler) ResolveAlert(c *gin.Context) {
	err := h.store.ResolveAlert(c.Request.Context(), c.Param("id"), time.Now())
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to resolve alert", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert resolved"})
}
