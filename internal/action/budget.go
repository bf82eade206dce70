package action

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

const (
	defaultBudgetAdjustment = -15.0 // percent
	defaultMinBudget        = 10.0
)

// BudgetHandler adjusts a campaign's daily budget, same shape as the bid
// handler: percentage or absolute delta, floored at min_budget (default 10.0)
// and optionally capped at max_budget.
type BudgetHandler struct {
	logger *zap.Logger
	store  *storage.Store
	remote RemoteSync
}

// NewBudgetHandler creates an adjust-budget handler
func NewBudgetHandler(logger *zap.Logger, store *storage.Store, remote RemoteSync) *BudgetHandler {
	return &BudgetHandler{
		logger: logger.Named("budget"),
		store:  store,
		remote: remote,
	}
}

// Execute computes and persists the new daily budget
func (h *BudgetHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	adjType := configString(rule.ActionConfig, "adjustment_type", adjustmentPercentage)
	adjValue := configFloat(rule.ActionConfig, "adjustment_value", defaultBudgetAdjustment)
	minBudget := configFloat(rule.ActionConfig, "min_budget", defaultMinBudget)
	maxBudget := configFloat(rule.ActionConfig, "max_budget", math.Inf(1))

	newBudget, err := adjust(campaign.DailyBudget, adjType, adjValue)
	if err != nil {
		return nil, err
	}
	newBudget = clamp(newBudget, minBudget, maxBudget)

	if err := h.store.UpdateCampaignBudget(ctx, campaign.ID, newBudget); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	previous := campaign.DailyBudget
	campaign.DailyBudget = newBudget

	if h.remote != nil {
		if err := h.remote.SetBudget(ctx, campaign.ID, newBudget); err != nil {
			// Upstream rejected the change: put the stored budget back so the
			// local record never drifts ahead of the marketplace
			if revertErr := h.store.UpdateCampaignBudget(ctx, campaign.ID, previous); revertErr != nil {
				h.logger.Error("Failed to revert budget after push failure",
					zap.String("campaign_id", campaign.ID),
					zap.Error(revertErr))
			}
			campaign.DailyBudget = previous
			return nil, fmt.Errorf("failed to push budget upstream: %w", err)
		}
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"previous_budget":  previous,
		"new_budget":       newBudget,
		"adjustment_type":  adjType,
		"adjustment_value": adjValue,
	})
	return &model.ActionResult{
		CampaignID: campaign.ID,
		ActionType: model.ActionAdjustBudget,
		Result:     payload,
	}, nil
}
