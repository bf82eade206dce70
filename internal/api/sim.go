package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meliguard/acosd/internal/sim"
	"github.com/meliguard/acosd/internal/storage"
)

// CompetitorScan returns a fabricated competitor snapshot for a category
func (h *Handler) CompetitorScan(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}
	c.JSON(http.StatusOK, h.intel.ScanCategory(category))
}

// OptimizePreview returns fabricated projected deltas for a candidate change
func (h *Handler) OptimizePreview(c *gin.Context) {
	var req sim.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CampaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaign_id is required"})
		return
	}
	if _, err := h.store.GetCampaign(c.Request.Context(), req.CampaignID); err != nil {
		if err == storage.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get campaign"})
		return
	}
	c.JSON(http.StatusOK, h.optimizer.Preview(&req))
}
