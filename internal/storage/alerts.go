package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meliguard/acosd/internal/model"
)

// CreateAlert stores a triggered alert
func (s *Store) CreateAlert(ctx context.Context, alert *model.Alert) error {
	var data sql.NullString
	if len(alert.Data) > 0 {
		encoded, err := json.Marshal(alert.Data)
		if err != nil {
			return fmt.Errorf("failed to encode alert data: %w", err)
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, rule_id, campaign_id, severity, message, data, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		sql.NullString{String: alert.RuleID, Valid: alert.RuleID != ""},
		sql.NullString{String: alert.CampaignID, Valid: alert.CampaignID != ""},
		alert.Severity,
		alert.Message,
		data,
		alert.CreatedAt,
		sql.NullTime{Time: timeOrZero(alert.ResolvedAt), Valid: alert.ResolvedAt != nil},
	)
	if err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// GetAlert retrieves an alert by ID
func (s *Store) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rule_id, campaign_id, severity, message, data, created_at, resolved_at
		FROM alerts WHERE id = ?`, id)

	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	return alert, nil
}

// ListAlerts retrieves alerts, newest first. unresolvedOnly skips resolved ones.
func (s *Store) ListAlerts(ctx context.Context, unresolvedOnly bool, offset, limit int) ([]*model.Alert, error) {
	query := `
		SELECT id, rule_id, campaign_id, severity, message, data, created_at, resolved_at
		FROM alerts`
	if unresolvedOnly {
		query += " WHERE resolved_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return alerts, nil
}

// ResolveAlert marks an alert resolved at the given time
func (s *Store) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE alerts SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL",
		at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
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

func scanAlert(row rowScanner) (*model.Alert, error) {
	var alert model.Alert
	var ruleID, campaignID, data sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&alert.ID,
		&ruleID,
		&campaignID,
		&alert.Severity,
		&alert.Message,
		&data,
		&alert.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if ruleID.Valid {
		alert.RuleID = ruleID.String
	}
	if campaignID.Valid {
		alert.CampaignID = campaignID.String
	}
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &alert.Data); err != nil {
			return nil, fmt.Errorf("failed to decode alert data: %w", err)
		}
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	return &alert, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
