package action

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
)

// KeywordsHandler is a stub: it returns static suggestions and mutates
// nothing. A real optimizer would need keyword-level metrics this system
// does not collect.
type KeywordsHandler struct {
	logger *zap.Logger
}

// NewKeywordsHandler creates the optimize-keywords stub handler
func NewKeywordsHandler(logger *zap.Logger) *KeywordsHandler {
	return &KeywordsHandler{logger: logger.Named("keywords")}
}

var keywordSuggestions = []string{
	"Review search terms with zero conversions over the window",
	"Add negative keywords for high-cost, low-revenue terms",
	"Move top converting terms into an exact-match group",
}

// Execute returns the static suggestion list
func (h *KeywordsHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"suggestions": keywordSuggestions,
		"simulated":   true,
	})
	return &model.ActionResult{
		CampaignID: campaign.ID,
		ActionType: model.ActionOptimizeKeywords,
		Result:     payload,
	}, nil
}
