package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meliguard/acosd/internal/model"
)

// CreateAlertRule inserts a generic alert rule
func (s *Store) CreateAlertRule(ctx context.Context, rule *model.AlertRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (
			id, name, enabled, campaign_id, metric, operator, threshold,
			severity, cooldown_minutes, last_triggered, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.Enabled,
		sql.NullString{String: rule.CampaignID, Valid: rule.CampaignID != ""},
		rule.Metric,
		rule.Operator,
		rule.Threshold,
		rule.Severity,
		rule.CooldownMinutes,
		sql.NullTime{Time: timeOrZero(rule.LastTriggered), Valid: rule.LastTriggered != nil},
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store alert rule: %w", err)
	}
	return nil
}

// UpdateAlertRule persists the current state of an alert rule
func (s *Store) UpdateAlertRule(ctx context.Context, rule *model.AlertRule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alert_rules SET
			name = ?, enabled = ?, campaign_id = ?, metric = ?, operator = ?,
			threshold = ?, severity = ?, cooldown_minutes = ?, last_triggered = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name,
		rule.Enabled,
		sql.NullString{String: rule.CampaignID, Valid: rule.CampaignID != ""},
		rule.Metric,
		rule.Operator,
		rule.Threshold,
		rule.Severity,
		rule.CooldownMinutes,
		sql.NullTime{Time: timeOrZero(rule.LastTriggered), Valid: rule.LastTriggered != nil},
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAlertRule retrieves an alert rule by ID
func (s *Store) GetAlertRule(ctx context.Context, id string) (*model.AlertRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, enabled, campaign_id, metric, operator, threshold,
			severity, cooldown_minutes, last_triggered, created_at, updated_at
		FROM alert_rules WHERE id = ?`, id)

	rule, err := scanAlertRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert rule: %w", err)
	}
	return rule, nil
}

// ListAlertRules retrieves alert rules; enabledOnly restricts to enabled ones
func (s *Store) ListAlertRules(ctx context.Context, enabledOnly bool) ([]*model.AlertRule, error) {
	query := `
		SELECT id, name, enabled, campaign_id, metric, operator, threshold,
			severity, cooldown_minutes, last_triggered, created_at, updated_at
		FROM alert_rules`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.AlertRule
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return rules, nil
}

// DeleteAlertRule removes an alert rule
func (s *Store) DeleteAlertRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAlertRule records the moment a rule last fired, for cooldown checks
func (s *Store) TouchAlertRule(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE alert_rules SET last_triggered = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("failed to touch alert rule: %w", err)
	}
	return nil
}

func scanAlertRule(row rowScanner) (*model.AlertRule, error) {
	var rule model.AlertRule
	var campaignID sql.NullString
	var lastTriggered sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Enabled,
		&campaignID,
		&rule.Metric,
		&rule.Operator,
		&rule.Threshold,
		&rule.Severity,
		&rule.CooldownMinutes,
		&lastTriggered,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if campaignID.Valid {
		rule.CampaignID = campaignID.String
	}
	if lastTriggered.Valid {
		rule.LastTriggered = &lastTriggered.Time
	}
	return &rule, nil
}
