package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meliguard/acosd/internal/model"
)

// CreateSchedule inserts a campaign schedule
func (s *Store) CreateSchedule(ctx context.Context, sched *model.CampaignSchedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_schedules (
			id, name, campaign_id, expression, action, budget,
			last_run_time, next_run_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID,
		sched.Name,
		sched.CampaignID,
		sched.Expression,
		sched.Action,
		sched.Budget,
		sql.NullTime{Time: timeOrZero(sched.LastRunTime), Valid: sched.LastRunTime != nil},
		sql.NullTime{Time: timeOrZero(sched.NextRunTime), Valid: sched.NextRunTime != nil},
		sched.CreatedAt,
		sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store schedule: %w", err)
	}
	return nil
}

// UpdateScheduleRunTimes records last/next run after a schedule fires
func (s *Store) UpdateScheduleRunTimes(ctx context.Context, sched *model.CampaignSchedule) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE campaign_schedules SET last_run_time = ?, next_run_time = ?, updated_at = ?
		WHERE id = ?`,
		sql.NullTime{Time: timeOrZero(sched.LastRunTime), Valid: sched.LastRunTime != nil},
		sql.NullTime{Time: timeOrZero(sched.NextRunTime), Valid: sched.NextRunTime != nil},
		sched.UpdatedAt,
		sched.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule run times: %w", err)
	}
	return nil
}

// ListSchedules retrieves all campaign schedules
func (s *Store) ListSchedules(ctx context.Context) ([]*model.CampaignSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, campaign_id, expression, action, budget,
			last_run_time, next_run_time, created_at, updated_at
		FROM campaign_schedules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*model.CampaignSchedule
	for rows.Next() {
		var sched model.CampaignSchedule
		var lastRun, nextRun sql.NullTime

		err := rows.Scan(
			&sched.ID,
			&sched.Name,
			&sched.CampaignID,
			&sched.Expression,
			&sched.Action,
			&sched.Budget,
			&lastRun,
			&nextRun,
			&sched.CreatedAt,
			&sched.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		if lastRun.Valid {
			sched.LastRunTime = &lastRun.Time
		}
		if nextRun.Valid {
			sched.NextRunTime = &nextRun.Time
		}
		schedules = append(schedules, &sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return schedules, nil
}

// DeleteSchedule removes a campaign schedule
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM campaign_schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
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
