package model

import "time"

// ThresholdType determines the comparison direction for a rule
type ThresholdType string

const (
	ThresholdMaximum ThresholdType = "maximum"
	ThresholdMinimum ThresholdType = "minimum"
)

// ActionType represents the action dispatched when a rule triggers
type ActionType string

const (
	ActionPauseCampaign    ActionType = "pause_campaign"
	ActionAdjustBid        ActionType = "adjust_bid"
	ActionAdjustBudget     ActionType = "adjust_budget"
	ActionOptimizeKeywords ActionType = "optimize_keywords"
	ActionSendAlert        ActionType = "send_alert"
)

// ValidActionTypes lists every dispatchable action type
var ValidActionTypes = []ActionType{
	ActionPauseCampaign,
	ActionAdjustBid,
	ActionAdjustBudget,
	ActionOptimizeKeywords,
	ActionSendAlert,
}

// AcosRule defines an ACOS threshold rule evaluated against campaign metrics
type AcosRule struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Enabled        bool                   `json:"enabled"`
	ThresholdType  ThresholdType          `json:"threshold_type"`
	ThresholdValue float64                `json:"threshold_value"`
	WindowHours    int                    `json:"window_hours"`
	ActionType     ActionType             `json:"action_type"`
	ActionConfig   map[string]interface{} `json:"action_config,omitempty"`
	CampaignIDs    []string               `json:"campaign_ids,omitempty"`
	Categories     []string               `json:"categories,omitempty"`
	MinimumSpend   float64                `json:"minimum_spend"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// AcosRuleUpdate carries a partial update; nil fields are left untouched
type AcosRuleUpdate struct {
	Name           *string                 `json:"name,omitempty"`
	Enabled        *bool                   `json:"enabled,omitempty"`
	ThresholdType  *ThresholdType          `json:"threshold_type,omitempty"`
	ThresholdValue *float64                `json:"threshold_value,omitempty"`
	WindowHours    *int                    `json:"window_hours,omitempty"`
	ActionType     *ActionType             `json:"action_type,omitempty"`
	ActionConfig   *map[string]interface{} `json:"action_config,omitempty"`
	CampaignIDs    *[]string               `json:"campaign_ids,omitempty"`
	Categories     *[]string               `json:"categories,omitempty"`
	MinimumSpend   *float64                `json:"minimum_spend,omitempty"`
}

// Apply copies the non-nil fields of the update onto the rule
func (u *AcosRuleUpdate) Apply(r *AcosRule) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if u.ThresholdType != nil {
		r.ThresholdType = *u.ThresholdType
	}
	if u.ThresholdValue != nil {
		r.ThresholdValue = *u.ThresholdValue
	}
	if u.WindowHours != nil {
		r.WindowHours = *u.WindowHours
	}
	if u.ActionType != nil {
		r.ActionType = *u.ActionType
	}
	if u.ActionConfig != nil {
		r.ActionConfig = *u.ActionConfig
	}
	if u.CampaignIDs != nil {
		r.CampaignIDs = *u.CampaignIDs
	}
	if u.Categories != nil {
		r.Categories = *u.Categories
	}
	if u.MinimumSpend != nil {
		r.MinimumSpend = *u.MinimumSpend
	}
	r.UpdatedAt = time.Now()
}
