package model

import "time"

// CampaignStatus represents the current status of a campaign
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusPaused   CampaignStatus = "paused"
	CampaignStatusArchived CampaignStatus = "archived"
)

// Campaign represents an advertising campaign managed by the service
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      CampaignStatus `json:"status"`
	MaxBid      float64        `json:"max_bid"`
	DailyBudget float64        `json:"daily_budget"`
	Categories  []string       `json:"categories,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// InCategory reports whether the campaign carries the given category tag
func (c *Campaign) InCategory(category string) bool {
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}
