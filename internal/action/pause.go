package action

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

// RemoteSync pushes campaign mutations to the upstream marketplace API.
// Handlers treat it as optional; a nil sync keeps changes local.
type RemoteSync interface {
	PauseCampaign(ctx context.Context, campaignID string) error
	SetBid(ctx context.Context, campaignID string, bid float64) error
	SetBudget(ctx context.Context, campaignID string, budget float64) error
}

// PauseHandler pauses a campaign when its rule triggers
type PauseHandler struct {
	logger *zap.Logger
	store  *storage.Store
	remote RemoteSync
}

// NewPauseHandler creates a pause-campaign handler
func NewPauseHandler(logger *zap.Logger, store *storage.Store, remote RemoteSync) *PauseHandler {
	return &PauseHandler{
		logger: logger.Named("pause"),
		store:  store,
		remote: remote,
	}
}

// Execute sets the campaign status to paused
func (h *PauseHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	previous := campaign.Status
	if err := h.store.UpdateCampaignStatus(ctx, campaign.ID, model.CampaignStatusPaused); err != nil {
		return nil, fmt.Errorf("failed to pause campaign: %w", err)
	}
	campaign.Status = model.CampaignStatusPaused

	if h.remote != nil {
		if err := h.remote.PauseCampaign(ctx, campaign.ID); err != nil {
			// Upstream rejected the change: restore the stored status so the
			// local record never drifts ahead of the marketplace
			if revertErr := h.store.UpdateCampaignStatus(ctx, campaign.ID, previous); revertErr != nil {
				h.logger.Error("Failed to revert status after push failure",
					zap.String("campaign_id", campaign.ID),
					zap.Error(revertErr))
			}
			campaign.Status = previous
			return nil, fmt.Errorf("failed to push pause upstream: %w", err)
		}
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"previous_status": previous,
		"new_status":      model.CampaignStatusPaused,
	})
	return &model.ActionResult{
		CampaignID: campaign.ID,
		ActionType: model.ActionPauseCampaign,
		Result:     payload,
	}, nil
}
