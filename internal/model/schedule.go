package model

import "time"

// ScheduleAction is what a campaign schedule does when it fires
type ScheduleAction string

const (
	ScheduleActionPause       ScheduleAction = "pause"
	ScheduleActionActivate    ScheduleAction = "activate"
	ScheduleActionResetBudget ScheduleAction = "reset_budget"
)

// CampaignSchedule fires a campaign action on a cron expression
type CampaignSchedule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	CampaignID  string         `json:"campaign_id"`
	Expression  string         `json:"expression"`
	Action      ScheduleAction `json:"action"`
	Budget      float64        `json:"budget,omitempty"`
	LastRunTime *time.Time     `json:"last_run_time,omitempty"`
	NextRunTime *time.Time     `json:"next_run_time,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
