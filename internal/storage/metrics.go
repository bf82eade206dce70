package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
)

// AddMetricSample inserts a metric sample row
func (s *Store) AddMetricSample(ctx context.Context, sample *model.MetricSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metric_samples (id, campaign_id, date, cost, revenue, clicks, impressions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sample.ID,
		sample.CampaignID,
		sample.Date,
		sample.Cost,
		sample.Revenue,
		sample.Clicks,
		sample.Impressions,
	)
	if err != nil {
		return fmt.Errorf("failed to store metric sample: %w", err)
	}
	return nil
}

// SumMetrics sums cost, revenue and clicks for a campaign over [from, to]
func (s *Store) SumMetrics(ctx context.Context, campaignID string, from, to time.Time) (cost, revenue float64, clicks int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(revenue), 0), COALESCE(SUM(clicks), 0)
		FROM metric_samples
		WHERE campaign_id = ? AND date >= ? AND date <= ?`,
		campaignID, from, to,
	).Scan(&cost, &revenue, &clicks)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to sum metrics: %w", err)
	}
	return cost, revenue, clicks, nil
}

// ListMetricSamples retrieves samples for a campaign over [from, to]
func (s *Store) ListMetricSamples(ctx context.Context, campaignID string, from, to time.Time) ([]*model.MetricSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, date, cost, revenue, clicks, impressions
		FROM metric_samples
		WHERE campaign_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		campaignID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list metric samples: %w", err)
	}
	defer rows.Close()

	var samples []*model.MetricSample
	for rows.Next() {
		var m model.MetricSample
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.Date, &m.Cost, &m.Revenue, &m.Clicks, &m.Impressions); err != nil {
			return nil, fmt.Errorf("failed to scan metric sample: %w", err)
		}
		samples = append(samples, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return samples, nil
}

// DeleteMetricsBefore deletes samples older than the cutoff
func (s *Store) DeleteMetricsBefore(ctx context.Context, before time.Time) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM metric_samples WHERE date < ?", before)
	if err != nil {
		return fmt.Errorf("failed to delete metric samples: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	s.logger.Info("Deleted old metric samples",
		zap.Time("before", before),
		zap.Int64("deleted", affected))
	return nil
}
