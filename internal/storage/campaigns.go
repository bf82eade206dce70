package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meliguard/acosd/internal/model"
)

// CreateCampaign inserts a campaign row
func (s *Store) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	categories, err := marshalJSONField(c.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, status, max_bid, daily_budget, categories, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Status, c.MaxBid, c.DailyBudget, categories, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by ID
func (s *Store) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, max_bid, daily_budget, categories, created_at, updated_at
		FROM campaigns WHERE id = ?`, id)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns retrieves campaigns, optionally filtered by status
func (s *Store) ListCampaigns(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	query := `
		SELECT id, name, status, max_bid, daily_budget, categories, created_at, updated_at
		FROM campaigns`
	args := make([]interface{}, 0, 1)
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return campaigns, nil
}

// UpdateCampaignStatus sets the status field only
func (s *Store) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	return s.updateCampaignField(ctx, id, "status", string(status))
}

// UpdateCampaignBid sets the bid ceiling only
func (s *Store) UpdateCampaignBid(ctx context.Context, id string, bid float64) error {
	return s.updateCampaignField(ctx, id, "max_bid", bid)
}

// UpdateCampaignBudget sets the daily budget only
func (s *Store) UpdateCampaignBudget(ctx context.Context, id string, budget float64) error {
	return s.updateCampaignField(ctx, id, "daily_budget", budget)
}

func (s *Store) updateCampaignField(ctx context.Context, id, column string, value interface{}) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE campaigns SET %s = ?, updated_at = ? WHERE id = ?", column),
		value, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign %s: %w", column, err)
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

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var categories sql.NullString

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Status,
		&c.MaxBid,
		&c.DailyBudget,
		&categories,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &c.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
	}
	return &c, nil
}
