package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/engine"
	"github.com/meliguard/acosd/internal/monitor"
	"github.com/meliguard/acosd/internal/scheduler"
	"github.com/meliguard/acosd/internal/sim"
	"github.com/meliguard/acosd/internal/storage"
)

// EvaluationTrigger requests one rule evaluation run
type EvaluationTrigger interface {
	Trigger(ctx context.Context, requestedBy string) error
}

// Handler carries the dependencies the route handlers need
type Handler struct {
	logger     *zap.Logger
	store      *storage.Store
	aggregator *engine.Aggregator
	trigger    EvaluationTrigger
	scheduler  *scheduler.CampaignScheduler
	collector  *monitor.MetricsCollector
	intel      *sim.Intel
	optimizer  *sim.Optimizer
	startedAt  time.Time
}

// NewHandler creates the API handler set
func NewHandler(
	logger *zap.Logger,
	store *storage.Store,
	aggregator *engine.Aggregator,
	trigger EvaluationTrigger,
	sched *scheduler.CampaignScheduler,
	collector *monitor.MetricsCollector,
	intel *sim.Intel,
	optimizer *sim.Optimizer,
) *Handler {
	return &Handler{
		logger:     logger.Named("api"),
		store:      store,
		aggregator: aggregator,
		trigger:    trigger,
		scheduler:  sched,
		collector:  collector,
		intel:      intel,
		optimizer:  optimizer,
		startedAt:  time.Now(),
	}
}

// Health reports service liveness plus the latest host snapshot
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	}
	if h.collector != nil {
		if stats := h.collector.Latest(); stats != nil {
			resp["host"] = stats
		}
	}
	c.JSON(http.StatusOK, resp)
}
