package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every route mounted under /api/v1
func NewRouter(logger *zap.Logger, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger.Named("http")))

	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		// ACOS rules & evaluation
		api.POST("/rules", h.CreateRule)
		api.GET("/rules", h.ListRules)
		api.GET("/rules/:id", h.GetRule)
		api.PATCH("/rules/:id", h.UpdateRule)
		api.DELETE("/rules/:id", h.DeleteRule)
		api.POST("/rules/evaluate", h.TriggerEvaluation)
		api.GET("/executions", h.ListExecutions)

		// Campaigns & metrics
		api.POST("/campaigns", h.CreateCampaign)
		api.GET("/campaigns", h.ListCampaigns)
		api.GET("/campaigns/:id", h.GetCampaign)
		api.POST("/campaigns/:id/metrics", h.AddMetricSample)
		api.GET("/campaigns/:id/metrics", h.ListCampaignMetrics)
		api.GET("/campaigns/:id/analysis", h.CampaignAnalysis)

		// Alert rules & alerts
		api.POST("/alert-rules", h.CreateAlertRule)
		api.GET("/alert-rules", h.ListAlertRules)
		api.GET("/alert-rules/:id", h.GetAlertRule)
		api.PUT("/alert-rules/:id", h.UpdateAlertRule)
		api.DELETE("/alert-rules/:id", h.DeleteAlertRule)
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)

		// Campaign schedules
		api.POST("/schedules", h.CreateSchedule)
		api.GET("/schedules", h.ListSchedules)
		api.DELETE("/schedules/:id", h.DeleteSchedule)

		// Simulators
		api.GET("/intel/competitors/:category", h.CompetitorScan)
		api.POST("/optimize/preview", h.OptimizePreview)
	}
	return r
}
