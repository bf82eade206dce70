package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
)

// AlertSink receives alerts raised by the send-alert action. The alert
// manager implements it: persist, publish, notify.
type AlertSink interface {
	Raise(ctx context.Context, alert *model.Alert) error
}

// AlertHandler raises an alert when its rule triggers; no campaign mutation
type AlertHandler struct {
	logger *zap.Logger
	sink   AlertSink
}

// NewAlertHandler creates a send-alert handler
func NewAlertHandler(logger *zap.Logger, sink AlertSink) *AlertHandler {
	return &AlertHandler{
		logger: logger.Named("alert"),
		sink:   sink,
	}
}

// Execute creates an alert with severity banded by threshold overshoot
func (h *AlertHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	severity := model.SeverityForRatio(reading.Acos, rule.ThresholdValue)
	alert := &model.Alert{
		ID:         uuid.New().String(),
		RuleID:     rule.ID,
		CampaignID: campaign.ID,
		Severity:   severity,
		Message: fmt.Sprintf("ACOS %.2f%% crossed %s threshold %.2f%% for campaign %s",
			reading.Acos, rule.ThresholdType, rule.ThresholdValue, campaign.Name),
		Data: map[string]interface{}{
			"acos":      reading.Acos,
			"threshold": rule.ThresholdValue,
			"cost":      reading.Cost,
			"revenue":   reading.Revenue,
		},
		CreatedAt: time.Now(),
	}

	if err := h.sink.Raise(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to raise alert: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"alert_id": alert.ID,
		"severity": severity,
	})
	return &model.ActionResult{
		CampaignID: campaign.ID,
		ActionType: model.ActionSendAlert,
		Result:     payload,
	}, nil
}
