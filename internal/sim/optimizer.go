package sim

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// PreviewRequest describes a candidate bid/budget change to project
type PreviewRequest struct {
	CampaignID string  `json:"campaign_id"`
	NewBid     float64 `json:"new_bid,omitempty"`
	NewBudget  float64 `json:"new_budget,omitempty"`
}

// PreviewResult carries fabricated projected deltas for a candidate change
type PreviewResult struct {
	CampaignID          string    `json:"campaign_id"`
	ProjectedAcosDelta  float64   `json:"projected_acos_delta"`
	ProjectedSpendDelta float64   `json:"projected_spend_delta"`
	Confidence          float64   `json:"confidence"`
	GeneratedAt         time.Time `json:"generated_at"`
	Simulated           bool      `json:"simulated"`
}

// Optimizer fabricates optimization previews. No real forecasting happens
// here and nothing is persisted or mutated.
type Optimizer struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// NewOptimizer creates an optimization preview simulator
func NewOptimizer(logger *zap.Logger, seed int64) *Optimizer {
	return &Optimizer{
		logger: logger.Named("optimizer"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Preview fabricates projected ACOS and spend deltas for a candidate change.
// Lower bids and budgets trend the fabricated deltas downward so the output
// at least points in a plausible direction.
func (o *Optimizer) Preview(req *PreviewRequest) *PreviewResult {
	direction := 1.0
	if req.NewBid > 0 || req.NewBudget > 0 {
		// A requested change fabricates an improvement more often than not
		if o.rng.Float64() < 0.7 {
			direction = -1.0
		}
	}

	return &PreviewResult{
		CampaignID:          req.CampaignID,
		ProjectedAcosDelta:  round2(direction * o.rng.Float64() * 8),
		ProjectedSpendDelta: round2(direction * o.rng.Float64() * 25),
		Confidence:          round2(0.4 + o.rng.Float64()*0.5),
		GeneratedAt:         time.Now(),
		Simulated:           true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
