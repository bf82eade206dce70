package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/meliguard/acosd/internal/model"
)

// ExecutionFilters narrows execution listings. Zero values mean no filter.
type ExecutionFilters struct {
	RuleID     string
	CampaignID string
	Status     model.ExecutionStatus
}

// AppendExecution stores one execution record. Records are append-only and
// never updated or deduplicated.
func (s *Store) AppendExecution(ctx context.Context, exec *model.Execution) error {
	var result sql.NullString
	if len(exec.Result) > 0 {
		result = sql.NullString{String: string(exec.Result), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, rule_id, campaign_id, acos, threshold, action_type,
			result, status, error, executed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.RuleID,
		exec.CampaignID,
		exec.Acos,
		exec.Threshold,
		exec.ActionType,
		result,
		exec.Status,
		sql.NullString{String: exec.Error, Valid: exec.Error != ""},
		exec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store execution: %w", err)
	}
	return nil
}

// ListExecutions retrieves execution records matching the filters, newest first
func (s *Store) ListExecutions(ctx context.Context, filters ExecutionFilters, offset, limit int) ([]*model.Execution, error) {
	query := `
		SELECT id, rule_id, campaign_id, acos, threshold, action_type,
			result, status, error, executed_at
		FROM executions`
	args := make([]interface{}, 0, 5)
	where := ""

	appendCond := func(cond string, value interface{}) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, value)
	}

	if filters.RuleID != "" {
		appendCond("rule_id = ?", filters.RuleID)
	}
	if filters.CampaignID != "" {
		appendCond("campaign_id = ?", filters.CampaignID)
	}
	if filters.Status != "" {
		appendCond("status = ?", filters.Status)
	}

	query += where + " ORDER BY executed_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var executions []*model.Execution
	for rows.Next() {
		var exec model.Execution
		var result, errStr sql.NullString

		err := rows.Scan(
			&exec.ID,
			&exec.RuleID,
			&exec.CampaignID,
			&exec.Acos,
			&exec.Threshold,
			&exec.ActionType,
			&result,
			&exec.Status,
			&errStr,
			&exec.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		if result.Valid && result.String != "" {
			exec.Result = json.RawMessage(result.String)
		}
		if errStr.Valid {
			exec.Error = errStr.String
		}
		executions = append(executions, &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return executions, nil
}

// CountExecutions returns the number of records matching the filters
func (s *Store) CountExecutions(ctx context.Context, filters ExecutionFilters) (int, error) {
	query := "SELECT COUNT(*) FROM executions"
	args := make([]interface{}, 0, 3)
	where := ""

	appendCond := func(cond string, value interface{}) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, value)
	}

	if filters.RuleID != "" {
		appendCond("rule_id = ?", filters.RuleID)
	}
	if filters.CampaignID != "" {
		appendCond("campaign_id = ?", filters.CampaignID)
	}
	if filters.Status != "" {
		appendCond("status = ?", filters.Status)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}
