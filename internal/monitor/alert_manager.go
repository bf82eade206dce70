package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

const (
	alertStreamName = "ALERTS"
	alertWindow     = 24 * time.Hour
)

// NotificationChannel represents a channel for sending alert notifications
type NotificationChannel interface {
	Send(alert *model.Alert) error
}

// AlertManager evaluates generic alert rules against campaign metrics and
// fans triggered alerts out to storage, the bus and notification channels.
type AlertManager struct {
	logger   *zap.Logger
	store    *storage.Store
	js       nats.JetStreamContext
	interval time.Duration
	channels map[string]NotificationChannel
	stop     chan struct{}
}

// NewAlertManager creates a new alert manager
func NewAlertManager(logger *zap.Logger, store *storage.Store, js nats.JetStreamContext, interval time.Duration) *AlertManager {
	return &AlertManager{
		logger:   logger.Named("alert-manager"),
		store:    store,
		js:       js,
		interval: interval,
		channels: make(map[string]NotificationChannel),
		stop:     make(chan struct{}),
	}
}

// RegisterChannel adds a notification channel under a name
func (m *AlertManager) RegisterChannel(name string, ch NotificationChannel) {
	m.channels[name] = ch
}

// Start ensures the alert stream exists and begins the check loop
func (m *AlertManager) Start(ctx context.Context) error {
	stream, err := m.js.StreamInfo(alertStreamName)
	if err != nil && err != nats.ErrStreamNotFound {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	if stream == nil {
		_, err = m.js.AddStream(&nats.StreamConfig{
			Name:     alertStreamName,
			Subjects: []string{"alert.*"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	go m.checkLoop(ctx)

	m.logger.Info("Alert manager started")
	return nil
}

// Stop stops the alert manager
func (m *AlertManager) Stop() {
	close(m.stop)
}

// Raise persists an alert, publishes it on alert.<severity> and notifies
// every registered channel. Channel failures are logged, never propagated:
// delivery is best-effort, the stored row is the source of truth.
func (m *AlertManager) Raise(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := m.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if _, err := m.js.Publish("alert."+string(alert.Severity), data); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	for name, ch := range m.channels {
		if err := ch.Send(alert); err != nil {
			m.logger.Warn("Notification channel failed",
				zap.String("channel", name),
				zap.String("alert_id", alert.ID),
				zap.Error(err))
		}
	}

	m.logger.Info("Alert raised",
		zap.String("id", alert.ID),
		zap.String("rule_id", alert.RuleID),
		zap.String("campaign_id", alert.CampaignID),
		zap.String("severity", string(alert.Severity)))
	return nil
}

// checkLoop periodically evaluates all alert rules
func (m *AlertManager) checkLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.CheckRules(ctx); err != nil {
				m.logger.Error("Alert rule check failed", zap.Error(err))
			}
		}
	}
}

// CheckRules evaluates every enabled alert rule once. Rules in cooldown are
// skipped; triggered rules raise an alert and stamp last_triggered.
func (m *AlertManager) CheckRules(ctx context.Context) error {
	rules, err := m.store.ListAlertRules(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list alert rules: %w", err)
	}

	now := time.Now()
	for _, rule := range rules {
		if rule.InCooldown(now) {
			continue
		}

		campaigns, err := m.resolveCampaigns(ctx, rule)
		if err != nil {
			m.logger.Warn("Failed to resolve campaigns for alert rule",
				zap.String("rule_id", rule.ID),
				zap.Error(err))
			continue
		}

		for _, campaign := range campaigns {
			value, ok, err := m.metricValue(ctx, rule.Metric, campaign)
			if err != nil {
				m.logger.Warn("Failed to read metric for alert rule",
					zap.String("rule_id", rule.ID),
					zap.String("campaign_id", campaign.ID),
					zap.Error(err))
				continue
			}
			if !ok || !rule.Operator.Compare(value, rule.Threshold) {
				continue
			}

			alert := &model.Alert{
				ID:         uuid.New().String(),
				RuleID:     rule.ID,
				CampaignID: campaign.ID,
				Severity:   rule.Severity,
				Message: fmt.Sprintf("%s %.2f breached threshold %s %.2f for campaign %s",
					rule.Metric, value, rule.Operator, rule.Threshold, campaign.Name),
				Data: map[string]interface{}{
					"metric":    string(rule.Metric),
					"operator":  string(rule.Operator),
					"value":     value,
					"threshold": rule.Threshold,
				},
				CreatedAt: now,
			}
			if err := m.Raise(ctx, alert); err != nil {
				m.logger.Error("Failed to raise alert",
					zap.String("rule_id", rule.ID),
					zap.Error(err))
				continue
			}
			if err := m.store.TouchAlertRule(ctx, rule.ID, now); err != nil {
				m.logger.Error("Failed to stamp alert rule",
					zap.String("rule_id", rule.ID),
					zap.Error(err))
			}
			if rule.CooldownMinutes > 0 {
				// The cooldown stamp covers the whole rule, not a single
				// campaign, so one trigger per rule per pass. Rules without
				// a cooldown keep going and alert every breaching campaign.
				break
			}
		}
	}
	return nil
}

func (m *AlertManager) resolveCampaigns(ctx context.Context, rule *model.AlertRule) ([]*model.Campaign, error) {
	if rule.CampaignID != "" {
		c, err := m.store.GetCampaign(ctx, rule.CampaignID)
		if err == storage.ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*model.Campaign{c}, nil
	}
	return m.store.ListCampaigns(ctx, model.CampaignStatusActive)
}

// metricValue computes the watched figure for a campaign over the trailing
// alert window. ok=false means the figure is undefined (no revenue for acos,
// no clicks for cpc) and the rule must not fire.
func (m *AlertManager) metricValue(ctx context.Context, metric model.MetricName, campaign *model.Campaign) (float64, bool, error) {
	if metric == model.MetricBudget {
		return campaign.DailyBudget, true, nil
	}

	now := time.Now()
	cost, revenue, clicks, err := m.store.SumMetrics(ctx, campaign.ID, now.Add(-alertWindow), now)
	if err != nil {
		return 0, false, err
	}

	switch metric {
	case model.MetricSpend:
		return cost, true, nil
	case model.MetricRevenue:
		return revenue, true, nil
	case model.MetricAcos:
		if revenue <= 0 {
			return 0, false, nil
		}
		return cost / revenue * 100, true, nil
	case model.MetricCPC:
		if clicks <= 0 {
			return 0, false, nil
		}
		return cost / float64(clicks), true, nil
	default:
		return 0, false, fmt.Errorf("unknown metric: %s", metric)
	}
}
