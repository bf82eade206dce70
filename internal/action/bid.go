package action

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

const (
	adjustmentPercentage = "percentage"
	adjustmentAbsolute   = "absolute"

	defaultBidAdjustment = -10.0 // percent
	defaultMinCPC        = 0.10
)

// BidHandler adjusts a campaign's bid ceiling. The adjustment comes from the
// rule's action config: adjustment_type percentage|absolute and
// adjustment_value, clamped to [min_cpc, max_cpc]. Without a configured
// ceiling the bid may at most double.
type BidHandler struct {
	logger *zap.Logger
	store  *storage.Store
	remote RemoteSync
}

// NewBidHandler creates an adjust-bid handler
func NewBidHandler(logger *zap.Logger, store *storage.Store, remote RemoteSync) *BidHandler {
	return &BidHandler{
		logger: logger.Named("bid"),
		store:  store,
		remote: remote,
	}
}

// Execute computes and persists the new bid
func (h *BidHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	adjType := configString(rule.ActionConfig, "adjustment_type", adjustmentPercentage)
	adjValue := configFloat(rule.ActionConfig, "adjustment_value", defaultBidAdjustment)
	minCPC := configFloat(rule.ActionConfig, "min_cpc", defaultMinCPC)
	maxCPC := configFloat(rule.ActionConfig, "max_cpc", campaign.MaxBid*2)

	newBid, err := adjust(campaign.MaxBid, adjType, adjValue)
	if err != nil {
		return nil, err
	}
	newBid = clamp(newBid, minCPC, maxCPC)

	if err := h.store.UpdateCampaignBid(ctx, campaign.ID, newBid); err != nil {
		return nil, fmt.Errorf("failed to update bid: %w", err)
	}
	previous := campaign.MaxBid
	campaign.MaxBid = newBid

	if h.remote != nil {
		if err := h.remote.SetBid(ctx, campaign.ID, newBid); err != nil {
			// Upstream rejected the change: put the stored bid back so the
			// local record never drifts ahead of the marketplace
			if revertErr := h.store.UpdateCampaignBid(ctx, campaign.ID, previous); revertErr != nil {
				h.logger.Error("Failed to revert bid after push failure",
					zap.String("campaign_id", campaign.ID),
					zap.Error(revertErr))
			}
			campaign.MaxBid = previous
			return nil, fmt.Errorf("failed to push bid upstream: %w", err)
		}
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"previous_bid":     previous,
		"new_bid":          newBid,
		"adjustment_type":  adjType,
		"adjustment_value": adjValue,
	})
	return &model.ActionResult{
		CampaignID: campaign.ID,
		ActionType: model.ActionAdjustBid,
		Result:     payload,
	}, nil
}

// adjust applies a percentage or absolute delta to the current value
func adjust(current float64, adjType string, adjValue float64) (float64, error) {
	switch adjType {
	case adjustmentPercentage:
		return current * (1 + adjValue/100), nil
	case adjustmentAbsolute:
		return current + adjValue, nil
	default:
		return 0, fmt.Errorf("unknown adjustment type: %s", adjType)
	}
}

// clamp bounds v to [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
