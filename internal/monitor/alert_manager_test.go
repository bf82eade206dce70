package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
	"github.com/meliguard/acosd/internal/testutil"
)

type channelSpy struct {
	mu     sync.Mutex
	alerts []*model.Alert
}

func (c *channelSpy) Send(alert *model.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *channelSpy) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func seedCampaign(t *testing.T, store *storage.Store, cost, revenue float64) *model.Campaign {
	t.Helper()
	ctx := context.Background()

	campaign := &model.Campaign{
		ID:          "camp-1",
		Name:        "Test Campaign",
		Status:      model.CampaignStatusActive,
		MaxBid:      1.0,
		DailyBudget: 100.0,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.CreateCampaign(ctx, campaign))
	require.NoError(t, store.AddMetricSample(ctx, &model.MetricSample{
		ID:         "sample-1",
		CampaignID: campaign.ID,
		Date:       time.Now().Add(-time.Hour),
		Cost:       cost,
		Revenue:    revenue,
		Clicks:     100,
	}))
	return campaign
}

func TestAlertManager_Raise(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	manager := NewAlertManager(logger, store, js, time.Minute)
	spy := &channelSpy{}
	manager.RegisterChannel("spy", spy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	received := make(chan *model.Alert, 1)
	sub, err := js.Subscribe("alert.high", func(msg *nats.Msg) {
		var alert model.Alert
		require.NoError(t, json.Unmarshal(msg.Data, &alert))
		received <- &alert
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	alert := &model.Alert{
		CampaignID: "camp-1",
		Severity:   model.AlertSeverityHigh,
		Message:    "ACOS breached threshold",
	}
	require.NoError(t, manager.Raise(ctx, alert))
	require.NotEmpty(t, alert.ID)

	// Stored
	stored, err := store.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertSeverityHigh, stored.Severity)
	require.Nil(t, stored.ResolvedAt)

	// Published
	select {
	case published := <-received:
		require.Equal(t, alert.ID, published.ID)
	case <-ctx.Done():
		t.Fatal("timeout waiting for alert")
	}

	// Notified
	require.Equal(t, 1, spy.count())
}

func TestAlertManager_CheckRules_Triggers(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	manager := NewAlertManager(logger, store, js, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	// ACOS over the window is 100/200 = 50%
	seedCampaign(t, store, 100.0, 200.0)

	rule := &model.AlertRule{
		ID:              "alert-rule-1",
		Name:            "ACOS over 30",
		Enabled:         true,
		Metric:          model.MetricAcos,
		Operator:        model.OpGreaterThan,
		Threshold:       30.0,
		Severity:        model.AlertSeverityHigh,
		CooldownMinutes: 60,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, store.CreateAlertRule(ctx, rule))

	require.NoError(t, manager.CheckRules(ctx))

	alerts, err := store.ListAlerts(ctx, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, rule.ID, alerts[0].RuleID)
	require.Equal(t, "camp-1", alerts[0].CampaignID)

	// The trigger stamps the cooldown
	stamped, err := store.GetAlertRule(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, stamped.LastTriggered)

	// A second pass inside the cooldown stays quiet
	require.NoError(t, manager.CheckRules(ctx))
	alerts, err = store.ListAlerts(ctx, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}

func TestAlertManager_CheckRules_NoCooldownAlertsEveryCampaign(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	manager := NewAlertManager(logger, store, js, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	// Two campaigns both over the threshold
	seedCampaign(t, store, 100.0, 200.0)
	second := &model.Campaign{
		ID:          "camp-2",
		Name:        "Second Campaign",
		Status:      model.CampaignStatusActive,
		MaxBid:      1.0,
		DailyBudget: 100.0,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.CreateCampaign(ctx, second))
	require.NoError(t, store.AddMetricSample(ctx, &model.MetricSample{
		ID:         "sample-2",
		CampaignID: second.ID,
		Date:       time.Now().Add(-time.Hour),
		Cost:       120.0,
		Revenue:    200.0,
		Clicks:     100,
	}))

	rule := &model.AlertRule{
		ID:        "alert-rule-1",
		Name:      "ACOS over 30",
		Enabled:   true,
		Metric:    model.MetricAcos,
		Operator:  model.OpGreaterThan,
		Threshold: 30.0,
		Severity:  model.AlertSeverityHigh,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAlertRule(ctx, rule))

	// Without a cooldown one pass covers every breaching campaign
	require.NoError(t, manager.CheckRules(ctx))

	alerts, err := store.ListAlerts(ctx, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	campaignIDs := map[string]bool{}
	for _, a := range alerts {
		campaignIDs[a.CampaignID] = true
	}
	require.True(t, campaignIDs["camp-1"])
	require.True(t, campaignIDs["camp-2"])
}

func TestAlertManager_CheckRules_NoRevenueNoAcosAlert(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	manager := NewAlertManager(logger, store, js, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	// Spend with zero revenue: the ACOS figure is undefined, not zero
	seedCampaign(t, store, 100.0, 0.0)

	rule := &model.AlertRule{
		ID:        "alert-rule-1",
		Name:      "ACOS under 30",
		Enabled:   true,
		Metric:    model.MetricAcos,
		Operator:  model.OpLessThan,
		Threshold: 30.0,
		Severity:  model.AlertSeverityLow,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAlertRule(ctx, rule))

	require.NoError(t, manager.CheckRules(ctx))

	alerts, err := store.ListAlerts(ctx, true, 0, 10)
	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestAlertManager_CheckRules_SpendMetric(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	manager := NewAlertManager(logger, store, js, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	campaign := seedCampaign(t, store, 500.0, 0.0)

	rule := &model.AlertRule{
		ID:         "alert-rule-1",
		Name:       "Spend over 400",
		Enabled:    true,
		CampaignID: campaign.ID,
		Metric:     model.MetricSpend,
		Operator:   model.OpGreaterEqual,
		Threshold:  400.0,
		Severity:   model.AlertSeverityCritical,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, store.CreateAlertRule(ctx, rule))

	require.NoError(t, manager.CheckRules(ctx))

	alerts, err := store.ListAlerts(ctx, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, model.AlertSeverityCritical, alerts[0].Severity)
}
