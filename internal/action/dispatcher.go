package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

// ErrUnknownAction is returned when no handler is registered for a rule's action type
var ErrUnknownAction = errors.New("no handler registered for action type")

// Handler executes one action type against a campaign. Handlers return an
// ActionResult describing what they did; hard failures come back as errors
// and are recorded as failed executions by the dispatcher.
type Handler interface {
	Execute(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.ActionResult, error)
}

// Dispatcher routes triggered rules to the handler registered for their
// action type and appends one execution record per dispatch. A failing
// handler never propagates past the dispatcher.
type Dispatcher struct {
	logger   *zap.Logger
	store    *storage.Store
	mu       sync.RWMutex
	handlers map[model.ActionType]Handler
}

// NewDispatcher creates a dispatcher with an empty handler registry
func NewDispatcher(logger *zap.Logger, store *storage.Store) *Dispatcher {
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		store:    store,
		handlers: make(map[model.ActionType]Handler),
	}
}

// RegisterHandler registers a handler for an action type
func (d *Dispatcher) RegisterHandler(actionType model.ActionType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[actionType] = handler
}

// Dispatch runs the action configured on the rule against the campaign and
// logs the outcome. The returned execution reflects success or failure; an
// error is returned only when the action type has no handler or the
// execution record itself cannot be written.
func (d *Dispatcher) Dispatch(ctx context.Context, rule *model.AcosRule, campaign *model.Campaign, reading *model.AcosReading) (*model.Execution, error) {
	d.mu.RLock()
	handler, ok := d.handlers[rule.ActionType]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, rule.ActionType)
	}

	exec := &model.Execution{
		ID:         uuid.New().String(),
		RuleID:     rule.ID,
		CampaignID: campaign.ID,
		Acos:       reading.Acos,
		Threshold:  rule.ThresholdValue,
		ActionType: rule.ActionType,
		ExecutedAt: time.Now(),
	}

	result, err := handler.Execute(ctx, rule, campaign, reading)
	switch {
	case err != nil:
		exec.Status = model.ExecutionStatusFailed
		exec.Error = err.Error()
		d.logger.Warn("Action failed",
			zap.String("rule_id", rule.ID),
			zap.String("campaign_id", campaign.ID),
			zap.String("action", string(rule.ActionType)),
			zap.Error(err))
	case result != nil && result.Error != "":
		exec.Status = model.ExecutionStatusFailed
		exec.Error = result.Error
		exec.Result = result.Result
	default:
		exec.Status = model.ExecutionStatusSuccess
		if result != nil {
			exec.Result = result.Result
		}
		d.logger.Info("Action executed",
			zap.String("rule_id", rule.ID),
			zap.String("campaign_id", campaign.ID),
			zap.String("action", string(rule.ActionType)),
			zap.Float64("acos", reading.Acos))
	}

	if err := d.store.AppendExecution(ctx, exec); err != nil {
		return exec, fmt.Errorf("failed to log execution: %w", err)
	}
	return exec, nil
}

// configFloat reads a numeric value from a rule's free-form action config.
// JSON numbers decode as float64; ints are accepted for hand-built configs.
func configFloat(cfg map[string]interface{}, key string, fallback float64) float64 {
	v, ok := cfg[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return fallback
	}
}

// configString reads a string value from a rule's action config
func configString(cfg map[string]interface{}, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
