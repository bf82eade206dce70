package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meliguard/acosd/internal/model"
)

// CreateRule inserts a new ACOS rule
func (s *Store) CreateRule(ctx context.Context, rule *model.AcosRule) error {
	actionConfig, err := marshalJSONField(rule.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to encode action config: %w", err)
	}
	campaignIDs, err := marshalJSONField(rule.CampaignIDs)
	if err != nil {
		return fmt.Errorf("failed to encode campaign ids: %w", err)
	}
	categories, err := marshalJSONField(rule.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acos_rules (
			id, name, enabled, threshold_type, threshold_value, window_hours,
			action_type, action_config, campaign_ids, categories,
			minimum_spend, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.Enabled,
		rule.ThresholdType,
		rule.ThresholdValue,
		rule.WindowHours,
		rule.ActionType,
		actionConfig,
		campaignIDs,
		categories,
		rule.MinimumSpend,
		sql.NullString{String: rule.CreatedBy, Valid: rule.CreatedBy != ""},
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store rule: %w", err)
	}
	return nil
}

// UpdateRule persists the current state of an existing rule
func (s *Store) UpdateRule(ctx context.Context, rule *model.AcosRule) error {
	actionConfig, err := marshalJSONField(rule.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to encode action config: %w", err)
	}
	campaignIDs, err := marshalJSONField(rule.CampaignIDs)
	if err != nil {
		return fmt.Errorf("failed to encode campaign ids: %w", err)
	}
	categories, err := marshalJSONField(rule.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE acos_rules SET
			name = ?, enabled = ?, threshold_type = ?, threshold_value = ?,
			window_hours = ?, action_type = ?, action_config = ?,
			campaign_ids = ?, categories = ?, minimum_spend = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name,
		rule.Enabled,
		rule.ThresholdType,
		rule.ThresholdValue,
		rule.WindowHours,
		rule.ActionType,
		actionConfig,
		campaignIDs,
		categories,
		rule.MinimumSpend,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
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

// GetRule retrieves a rule by ID
func (s *Store) GetRule(ctx context.Context, id string) (*model.AcosRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, enabled, threshold_type, threshold_value, window_hours,
			action_type, action_config, campaign_ids, categories,
			minimum_spend, created_by, created_at, updated_at
		FROM acos_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	return rule, nil
}

// ListRules retrieves all rules; enabledOnly restricts to enabled ones
func (s *Store) ListRules(ctx context.Context, enabledOnly bool) ([]*model.AcosRule, error) {
	query := `
		SELECT id, name, enabled, threshold_type, threshold_value, window_hours,
			action_type, action_config, campaign_ids, categories,
			minimum_spend, created_by, created_at, updated_at
		FROM acos_rules`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.AcosRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule. Execution records referencing the rule are kept.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM acos_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*model.AcosRule, error) {
	var rule model.AcosRule
	var actionConfig, campaignIDs, categories, createdBy sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Enabled,
		&rule.ThresholdType,
		&rule.ThresholdValue,
		&rule.WindowHours,
		&rule.ActionType,
		&actionConfig,
		&campaignIDs,
		&categories,
		&rule.MinimumSpend,
		&createdBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionConfig.Valid && actionConfig.String != "" {
		if err := json.Unmarshal([]byte(actionConfig.String), &rule.ActionConfig); err != nil {
			return nil, fmt.Errorf("failed to decode action config: %w", err)
		}
	}
	if campaignIDs.Valid && campaignIDs.String != "" {
		if err := json.Unmarshal([]byte(campaignIDs.String), &rule.CampaignIDs); err != nil {
			return nil, fmt.Errorf("failed to decode campaign ids: %w", err)
		}
	}
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &rule.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
	}
	if createdBy.Valid {
		rule.CreatedBy = createdBy.String
	}
	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt

	return &rule, nil
}

// marshalJSONField encodes a slice or map column, mapping empty to NULL
func marshalJSONField(v interface{}) (sql.NullString, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case nil:
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
