package model

import (
	"encoding/json"
	"time"
)

// ExecutionStatus represents the outcome of a dispatched action
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// Execution is an append-only record of one dispatched action. Records keep
// referencing their rule id even after the rule row is deleted, so the audit
// trail survives rule churn.
type Execution struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"rule_id"`
	CampaignID string          `json:"campaign_id"`
	Acos       float64         `json:"acos"`
	Threshold  float64         `json:"threshold"`
	ActionType ActionType      `json:"action_type"`
	Result     json.RawMessage `json:"result,omitempty"`
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// ActionResult is what an action handler returns after running against a
// campaign. Result payloads are stored verbatim on the execution record.
type ActionResult struct {
	CampaignID string          `json:"campaign_id"`
	ActionType ActionType      `json:"action_type"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}
