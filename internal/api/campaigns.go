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

// CreateCampaign registers a campaign with the service
func (h *Handler) CreateCampaign(c *gin.Context) {
	var campaign model.Campaign
	if err := c.ShouldBindJSON(&campaign); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if campaign.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if campaign.Status == "" {
		campaign.Status = model.CampaignStatusActive
	}
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	if err := h.store.CreateCampaign(c.Request.Context(), &campaign); err != nil {
		h.logger.Error("Failed to create campaign", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create campaign"})
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// GetCampaign retrieves a campaign by id
func (h *Handler) GetCampaign(c *gin.Context) {
	campaign, err := h.store.GetCampaign(c.Request.Context(), c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get campaign", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get campaign"})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// ListCampaigns lists campaigns, optionally filtered by status
func (h *Handler) ListCampaigns(c *gin.Context) {
	status := model.CampaignStatus(c.Query("status"))
	campaigns, err := h.store.ListCampaigns(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list campaigns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list campaigns"})
		return
	}
	if campaigns == nil {
		campaigns = []*model.Campaign{}
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// AddMetricSample records one metric sample for a campaign
func (h *Handler) AddMetricSample(c *gin.Context) {
	var sample model.MetricSample
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sample.CampaignID = c.Param("id")
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	if sample.Date.IsZero() {
		sample.Date = time.Now()
	}
	if sample.Cost < 0 || sample.Revenue < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cost and revenue must be non-negative"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetCampaign(ctx, sample.CampaignID); err != nil {
		if err == storage.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		h.logger.Error("Failed to get campaign", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get campaign"})
		return
	}
	if err := h.store.AddMetricSample(ctx, &sample); err != nil {
		h.logger.Error("Failed to add metric sample", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add metric sample"})
		return
	}
	c.JSON(http.StatusCreated, sample)
}

// ListCampaignMetrics lists a campaign's raw metric samples over a window
func (h *Handler) ListCampaignMetrics(c *gin.Context) {
	windowHours, err := strconv.Atoi(c.DefaultQuery("window_hours", "168"))
	if err != nil || windowHours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window_hours"})
		return
	}
	now := time.Now()
	samples, err := h.store.ListMetricSamples(c.Request.Context(), c.Param("id"),
		now.Add(-time.Duration(windowHours)*time.Hour), now)
	if err != nil {
		h.logger.Error("Failed to list metric samples", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list metrics"})
		return
	}
	if samples == nil {
		samples = []*model.MetricSample{}
	}
	c.JSON(http.StatusOK, gin.H{"metrics": samples})
}

// CampaignAnalysis returns the windowed ACOS reading for a campaign. When a
// threshold is supplied the response also bands the overshoot severity.
func (h *Handler) CampaignAnalysis(c *gin.Context) {
	windowHours, err := strconv.Atoi(c.DefaultQuery("window_hours", "24"))
	if err != nil || windowHours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window_hours"})
		return
	}

	ctx := c.Request.Context()
	campaign, err := h.store.GetCampaign(ctx, c.Param("id"))
	if err == storage.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get campaign", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get campaign"})
		return
	}

	reading, err := h.aggregator.Reading(ctx, campaign.ID, windowHours)
	if err != nil {
		h.logger.Error("Failed to aggregate metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
		return
	}

	resp := gin.H{
		"campaign": campaign,
		"reading":  reading,
	}
	if thresholdStr := c.Query("threshold"); thresholdStr != "" && reading.HasData {
		threshold, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil || threshold <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		resp["severity"] = model.SeverityForRatio(reading.Acos, threshold)
	}
	c.JSON(http.StatusOK, resp)
}
