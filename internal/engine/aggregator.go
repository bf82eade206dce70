package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

// Aggregator computes windowed ACOS readings from stored metric samples.
// Read-only: it never mutates campaign state.
type Aggregator struct {
	logger *zap.Logger
	store  *storage.Store
}

// NewAggregator creates a metric aggregator over the given store
func NewAggregator(logger *zap.Logger, store *storage.Store) *Aggregator {
	return &Aggregator{
		logger: logger.Named("aggregator"),
		store:  store,
	}
}

// Reading sums cost and revenue for the campaign over the trailing window
// and derives the ACOS ratio. When the window holds no positive revenue the
// reading comes back with HasData=false and no ratio: zero-revenue campaigns
// must not look like zero-ACOS campaigns.
func (a *Aggregator) Reading(ctx context.Context, campaignID string, windowHours int) (*model.AcosReading, error) {
	now := time.Now()
	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)

	cost, revenue, _, err := a.store.SumMetrics(ctx, campaignID, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	reading := &model.AcosReading{
		CampaignID:  campaignID,
		WindowStart: windowStart,
		WindowEnd:   now,
		Cost:        cost,
		Revenue:     revenue,
	}
	if revenue > 0 {
		reading.Acos = cost / revenue * 100
		reading.HasData = true
	}
	return reading, nil
}
