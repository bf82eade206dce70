package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

const (
	acosStreamName        = "ACOS"
	evaluateSubject       = "acos.evaluate"
	evaluationDoneSubject = "acos.result"
)

// ErrEvaluationInProgress is returned when a run is requested while another
// run is still executing. Overlapping runs would double-dispatch actions
// against the same campaigns, so they are rejected outright.
var ErrEvaluationInProgress = errors.New("evaluation already in progress")

// Dispatcher is the part of the action dispatcher the engine needs
type Dispatcher interface {
	Dispatch(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.Execution, error)
}

// TriggerRequest asks for one evaluation run over all enabled rules
type TriggerRequest struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RuleError records a rule whose evaluation failed mid-batch
type RuleError struct {
	RuleID string `json:"rule_id"`
	Error  string `json:"error"`
}

// BatchResult summarizes one evaluation run
type BatchResult struct {
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Rules      int                `json:"rules"`
	Campaigns  int                `json:"campaigns"`
	Triggered  int                `json:"triggered"`
	Executions []*model.Execution `json:"executions,omitempty"`
	Errors     []RuleError        `json:"errors,omitempty"`
}

// Engine runs the rule evaluation loop: per enabled rule it resolves the
// applicable campaigns, aggregates their metrics, evaluates the threshold,
// gates on minimum spend and dispatches the configured action.
type Engine struct {
	logger     *zap.Logger
	store      *storage.Store
	aggregator *Aggregator
	dispatcher Dispatcher
	js         nats.JetStreamContext
	running    atomic.Bool
	sub        *nats.Subscription
}

// New creates an evaluation engine. js may be nil for direct (untriggered) use.
func New(logger *zap.Logger, store *storage.Store, aggregator *Aggregator, dispatcher Dispatcher, js nats.JetStreamContext) *Engine {
	return &Engine{
		logger:     logger.Named("engine"),
		store:      store,
		aggregator: aggregator,
		dispatcher: dispatcher,
		js:         js,
	}
}

// Start subscribes the engine to evaluation triggers. Manual API triggers
// and scheduled triggers both land on the same durable consumer, so runs
// serialize even when requested concurrently.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.js.StreamInfo(acosStreamName)
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = e.js.AddStream(&nats.StreamConfig{
			Name:     acosStreamName,
			Subjects: []string{"acos.*"},
			Storage:  nats.FileStorage,
			MaxAge:   24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	sub, err := e.js.Subscribe(evaluateSubject, func(msg *nats.Msg) {
		var req TriggerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			e.logger.Error("Failed to unmarshal trigger request", zap.Error(err))
			return
		}
		result, err := e.EvaluateAll(ctx)
		if err != nil {
			e.logger.Warn("Evaluation run rejected", zap.Error(err))
			return
		}
		e.publishResult(result)
	}, nats.Durable("acos-evaluate-consumer"))
	if err != nil {
		return fmt.Errorf("failed to subscribe to evaluation triggers: %w", err)
	}
	e.sub = sub

	e.logger.Info("Evaluation engine started")
	return nil
}

// Stop detaches the engine from the trigger subject
func (e *Engine) Stop() {
	if e.sub != nil {
		e.sub.Unsubscribe()
	}
}

// Trigger publishes an evaluation request onto the bus
func (e *Engine) Trigger(ctx context.Context, requestedBy string) error {
	data, err := json.Marshal(TriggerRequest{
		RequestedBy: requestedBy,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger request: %w", err)
	}
	if _, err := e.js.Publish(evaluateSubject, data); err != nil {
		return fmt.Errorf("failed to publish trigger request: %w", err)
	}
	return nil
}

// EvaluateAll runs one batch over every enabled rule. Per-rule failures are
// collected into the result's error list; the batch keeps going. A second
// call while a run is in flight returns ErrEvaluationInProgress.
func (e *Engine) EvaluateAll(ctx context.Context) (*BatchResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrEvaluationInProgress
	}
	defer e.running.Store(false)

	result := &BatchResult{StartedAt: time.Now()}

	rules, err := e.store.ListRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	result.Rules = len(rules)

	for _, rule := range rules {
		if err := e.evaluateRule(ctx, rule, result); err != nil {
			result.Errors = append(result.Errors, RuleError{
				RuleID: rule.ID,
				Error:  err.Error(),
			})
			e.logger.Warn("Rule evaluation failed",
				zap.String("rule_id", rule.ID),
				zap.Error(err))
		}
	}

	result.FinishedAt = time.Now()
	e.logger.Info("Evaluation run finished",
		zap.Int("rules", result.Rules),
		zap.Int("campaigns", result.Campaigns),
		zap.Int("triggered", result.Triggered),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

// evaluateRule runs one rule against its applicable campaigns
func (e *Engine) evaluateRule(ctx context.Context, rule *model.AcosRule, result *BatchResult) error {
	campaigns, err := e.resolveCampaigns(ctx, rule)
	if err != nil {
		return err
	}
	result.Campaigns += len(campaigns)

	for _, campaign := range campaigns {
		reading, err := e.aggregator.Reading(ctx, campaign.ID, rule.WindowHours)
		if err != nil {
			return err
		}
		// No revenue in window: skip silently rather than treat as zero
		if !reading.HasData {
			continue
		}
		if !EvaluateThreshold(reading.Acos, rule.ThresholdValue, rule.ThresholdType) {
			continue
		}
		if reading.Cost < rule.MinimumSpend {
			e.logger.Debug("Spend below rule minimum, skipping",
				zap.String("rule_id", rule.ID),
				zap.String("campaign_id", campaign.ID),
				zap.Float64("spend", reading.Cost),
				zap.Float64("minimum", rule.MinimumSpend))
			continue
		}

		exec, err := e.dispatcher.Dispatch(ctx, rule, campaign, reading)
		if err != nil {
			return err
		}
		result.Triggered++
		result.Executions = append(result.Executions, exec)
	}
	return nil
}

// resolveCampaigns picks the campaigns a rule applies to: the explicit id
// list when present, else the category filter, else every active campaign.
func (e *Engine) resolveCampaigns(ctx context.Context, rule *model.AcosRule) ([]*model.Campaign, error) {
	if len(rule.CampaignIDs) > 0 {
		campaigns := make([]*model.Campaign, 0, len(rule.CampaignIDs))
		for _, id := range rule.CampaignIDs {
			c, err := e.store.GetCampaign(ctx, id)
			if err == storage.ErrNotFound {
				continue
			}
			if err != nil {
				return nil, err
			}
			campaigns = append(campaigns, c)
		}
		return campaigns, nil
	}

	active, err := e.store.ListCampaigns(ctx, model.CampaignStatusActive)
	if err != nil {
		return nil, err
	}
	if len(rule.Categories) == 0 {
		return active, nil
	}

	var filtered []*model.Campaign
	for _, c := range active {
		for _, cat := range rule.Categories {
			if c.InCategory(cat) {
				filtered = append(filtered, c)
				break
			}
		}
	}
	return filtered, nil
}

func (e *Engine) publishResult(result *BatchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		e.logger.Error("Failed to marshal batch result", zap.Error(err))
		return
	}
	if _, err := e.js.Publish(evaluationDoneSubject, data); err != nil {
		e.logger.Error("Failed to publish batch result", zap.Error(err))
	}
}
