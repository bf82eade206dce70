package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
	"github.com/meliguard/acosd/internal/testutil"
)

func addSample(t *testing.T, store *storage.Store, campaignID string, age time.Duration, cost, revenue float64) {
	t.Helper()
	require.NoError(t, store.AddMetricSample(context.Background(), &model.MetricSample{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Date:       time.Now().Add(-age),
		Cost:       cost,
		Revenue:    revenue,
	}))
}

func TestAggregatorReading(t *testing.T) {
	store := testutil.OpenStore(t)
	agg := NewAggregator(zap.NewNop(), store)
	ctx := context.Background()

	addSample(t, store, "camp-1", time.Hour, 150.0, 600.0)
	addSample(t, store, "camp-1", 2*time.Hour, 50.0, 400.0)
	// Outside the 24h window
	addSample(t, store, "camp-1", 30*time.Hour, 999.0, 1.0)
	// Different campaign
	addSample(t, store, "camp-2", time.Hour, 10.0, 10.0)

	reading, err := agg.Reading(ctx, "camp-1", 24)
	require.NoError(t, err)
	require.True(t, reading.HasData)
	require.Equal(t, 200.0, reading.Cost)
	require.Equal(t, 1000.0, reading.Revenue)
	require.InDelta(t, 20.0, reading.Acos, 1e-9)
}

func TestAggregatorReading_NoRevenue(t *testing.T) {
	store := testutil.OpenStore(t)
	agg := NewAggregator(zap.NewNop(), store)

	// Spend without revenue must not look like a zero-ACOS campaign
	addSample(t, store, "camp-1", time.Hour, 100.0, 0.0)

	reading, err := agg.Reading(context.Background(), "camp-1", 24)
	require.NoError(t, err)
	require.False(t, reading.HasData)
	require.Equal(t, 100.0, reading.Cost)
	require.Zero(t, reading.Acos)
}

func TestAggregatorReading_EmptyWindow(t *testing.T) {
	store := testutil.OpenStore(t)
	agg := NewAggregator(zap.NewNop(), store)

	reading, err := agg.Reading(context.Background(), "camp-1", 24)
	require.NoError(t, err)
	require.False(t, reading.HasData)
	require.Zero(t, reading.Cost)
	require.Zero(t, reading.Revenue)
}
