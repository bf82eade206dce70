package model

import "time"

// MetricSample holds one day of cost/revenue figures for a campaign.
// Samples are read-only from the evaluation workflow's perspective.
type MetricSample struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Date        time.Time `json:"date"`
	Cost        float64   `json:"cost"`
	Revenue     float64   `json:"revenue"`
	Clicks      int       `json:"clicks"`
	Impressions int       `json:"impressions"`
}

// AcosReading is the aggregate of metric samples over an evaluation window.
// HasData is false when the window contained no positive revenue; a reading
// without data carries no meaningful ratio and must not trigger a rule.
type AcosReading struct {
	CampaignID  string    `json:"campaign_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Cost        float64   `json:"cost"`
	Revenue     float64   `json:"revenue"`
	Acos        float64   `json:"acos"`
	HasData     bool      `json:"has_data"`
}
