package action

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
	"github.com/meliguard/acosd/internal/testutil"
)

func newCampaign(t *testing.T, store *storage.Store, maxBid, dailyBudget float64) *model.Campaign {
	t.Helper()
	campaign := &model.Campaign{
		ID:          "camp-1",
		Name:        "Test Campaign",
		Status:      model.CampaignStatusActive,
		MaxBid:      maxBid,
		DailyBudget: dailyBudget,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.CreateCampaign(context.Background(), campaign))
	return campaign
}

func newRule(actionType model.ActionType, config map[string]interface{}) *model.AcosRule {
	return &model.AcosRule{
		ID:             "rule-1",
		Name:           "Test Rule",
		Enabled:        true,
		ThresholdType:  model.ThresholdMaximum,
		ThresholdValue: 30.0,
		WindowHours:    24,
		ActionType:     actionType,
		ActionConfig:   config,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func newReading(acos float64) *model.AcosReading {
	return &model.AcosReading{
		CampaignID: "camp-1",
		Cost:       100.0,
		Revenue:    100.0 / acos * 100,
		Acos:       acos,
		HasData:    true,
	}
}

// failingHandler always errors
type failingHandler struct{}

func (failingHandler) Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error) {
	return nil, errors.New("boom")
}

func TestDispatcher_UnknownAction(t *testing.T) {
	store := testutil.OpenStore(t)
	d := NewDispatcher(zap.NewNop(), store)

	campaign := newCampaign(t, store, 1.0, 100.0)
	_, err := d.Dispatch(context.Background(), newRule(model.ActionPauseCampaign, nil), campaign, newReading(50.0))
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestDispatcher_RecordsSuccess(t *testing.T) {
	store := testutil.OpenStore(t)
	d := NewDispatcher(zap.NewNop(), store)
	d.RegisterHandler(model.ActionPauseCampaign, NewPauseHandler(zap.NewNop(), store, nil))
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	exec, err := d.Dispatch(ctx, newRule(model.ActionPauseCampaign, nil), campaign, newReading(50.0))
	require.NoError(t, err)
	require.Equal(t, model.ExecutionStatusSuccess, exec.Status)
	require.Equal(t, 50.0, exec.Acos)
	require.Equal(t, 30.0, exec.Threshold)

	// The campaign is paused
	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusPaused, got.Status)

	// One execution on record
	executions, err := store.ListExecutions(ctx, storage.ExecutionFilters{CampaignID: campaign.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	require.Equal(t, exec.ID, executions[0].ID)
}

func TestDispatcher_RecordsFailure(t *testing.T) {
	store := testutil.OpenStore(t)
	d := NewDispatcher(zap.NewNop(), store)
	d.RegisterHandler(model.ActionPauseCampaign, failingHandler{})
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	exec, err := d.Dispatch(ctx, newRule(model.ActionPauseCampaign, nil), campaign, newReading(50.0))
	// Handler failure is captured, not propagated
	require.NoError(t, err)
	require.Equal(t, model.ExecutionStatusFailed, exec.Status)
	require.Equal(t, "boom", exec.Error)

	executions, err := store.ListExecutions(ctx, storage.ExecutionFilters{Status: model.ExecutionStatusFailed}, 0, 10)
	require.NoError(t, err)
	require.Len(t, executions, 1)
}

func TestBidHandler_DefaultAdjustment(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBidHandler(zap.NewNop(), store, nil)
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	result, err := h.Execute(ctx, newRule(model.ActionAdjustBid, nil), campaign, newReading(50.0))
	require.NoError(t, err)

	// Default is -10% inside [0.10, 2x current]
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.InDelta(t, 0.90, payload["new_bid"], 1e-9)
	require.InDelta(t, 1.00, payload["previous_bid"], 1e-9)

	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.90, got.MaxBid, 1e-9)
}

func TestBidHandler_ClampsToFloor(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBidHandler(zap.NewNop(), store, nil)

	campaign := newCampaign(t, store, 0.10, 100.0)
	rule := newRule(model.ActionAdjustBid, map[string]interface{}{
		"adjustment_type":  "absolute",
		"adjustment_value": -5.0,
	})
	result, err := h.Execute(context.Background(), rule, campaign, newReading(50.0))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.InDelta(t, 0.10, payload["new_bid"], 1e-9)
}

func TestBidHandler_ClampsToCeiling(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBidHandler(zap.NewNop(), store, nil)

	campaign := newCampaign(t, store, 1.0, 100.0)
	rule := newRule(model.ActionAdjustBid, map[string]interface{}{
		"adjustment_type":  "percentage",
		"adjustment_value": 300.0,
	})
	result, err := h.Execute(context.Background(), rule, campaign, newReading(50.0))
	require.NoError(t, err)

	// Without a configured ceiling the bid may at most double
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.InDelta(t, 2.0, payload["new_bid"], 1e-9)
}

func TestBidHandler_UnknownAdjustmentType(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBidHandler(zap.NewNop(), store, nil)

	campaign := newCampaign(t, store, 1.0, 100.0)
	rule := newRule(model.ActionAdjustBid, map[string]interface{}{
		"adjustment_type": "bogus",
	})
	_, err := h.Execute(context.Background(), rule, campaign, newReading(50.0))
	require.Error(t, err)
}

func TestBudgetHandler_DefaultAdjustmentAndFloor(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBudgetHandler(zap.NewNop(), store, nil)
	ctx := context.Background()

	// Default is -15%
	campaign := newCampaign(t, store, 1.0, 100.0)
	result, err := h.Execute(ctx, newRule(model.ActionAdjustBudget, nil), campaign, newReading(50.0))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.InDelta(t, 85.0, payload["new_budget"], 1e-9)

	// A deep cut bottoms out at the 10.0 floor
	campaign.DailyBudget = 11.0
	rule := newRule(model.ActionAdjustBudget, map[string]interface{}{
		"adjustment_type":  "percentage",
		"adjustment_value": -90.0,
	})
	result, err = h.Execute(ctx, rule, campaign, newReading(50.0))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.InDelta(t, 10.0, payload["new_budget"], 1e-9)
}

func TestKeywordsHandler_StubNeverMutates(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewKeywordsHandler(zap.NewNop())
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	result, err := h.Execute(ctx, newRule(model.ActionOptimizeKeywords, nil), campaign, newReading(50.0))
	require.NoError(t, err)

	var payload struct {
		Suggestions []string `json:"suggestions"`
		Simulated   bool     `json:"simulated"`
	}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	require.NotEmpty(t, payload.Suggestions)
	require.True(t, payload.Simulated)

	// The campaign is untouched
	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusActive, got.Status)
	require.Equal(t, 1.0, got.MaxBid)
	require.Equal(t, 100.0, got.DailyBudget)
}

// failingRemote rejects every upstream push
type failingRemote struct{}

func (failingRemote) PauseCampaign(ctx context.Context, campaignID string) error {
	return errors.New("upstream unavailable")
}

func (failingRemote) SetBid(ctx context.Context, campaignID string, bid float64) error {
	return errors.New("upstream unavailable")
}

func (failingRemote) SetBudget(ctx context.Context, campaignID string, budget float64) error {
	return errors.New("upstream unavailable")
}

func TestBidHandler_PushFailureRevertsLocalBid(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBidHandler(zap.NewNop(), store, failingRemote{})
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	_, err := h.Execute(ctx, newRule(model.ActionAdjustBid, nil), campaign, newReading(50.0))
	require.Error(t, err)

	// The stored bid and the in-memory campaign keep the original value
	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.InDelta(t, 1.0, got.MaxBid, 1e-9)
	require.InDelta(t, 1.0, campaign.MaxBid, 1e-9)
}

func TestBudgetHandler_PushFailureRevertsLocalBudget(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewBudgetHandler(zap.NewNop(), store, failingRemote{})
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	_, err := h.Execute(ctx, newRule(model.ActionAdjustBudget, nil), campaign, newReading(50.0))
	require.Error(t, err)

	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, got.DailyBudget, 1e-9)
	require.InDelta(t, 100.0, campaign.DailyBudget, 1e-9)
}

func TestPauseHandler_PushFailureRevertsStatus(t *testing.T) {
	store := testutil.OpenStore(t)
	h := NewPauseHandler(zap.NewNop(), store, failingRemote{})
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)
	_, err := h.Execute(ctx, newRule(model.ActionPauseCampaign, nil), campaign, newReading(50.0))
	require.Error(t, err)

	got, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusActive, got.Status)
	require.Equal(t, model.CampaignStatusActive, campaign.Status)
}

// sink records raised alerts
type sinkSpy struct {
	alerts []*model.Alert
}

func (s *sinkSpy) Raise(ctx context.Context, alert *model.Alert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

func TestAlertHandler_SeverityBands(t *testing.T) {
	store := testutil.OpenStore(t)
	sink := &sinkSpy{}
	h := NewAlertHandler(zap.NewNop(), sink)
	ctx := context.Background()

	campaign := newCampaign(t, store, 1.0, 100.0)

	// 60 against 30 is double the threshold
	_, err := h.Execute(ctx, newRule(model.ActionSendAlert, nil), campaign, newReading(60.0))
	require.NoError(t, err)
	require.Len(t, sink.alerts, 1)
	require.Equal(t, model.AlertSeverityCritical, sink.alerts[0].Severity)
}
