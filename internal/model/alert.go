package model

import "time"

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// SeverityForRatio bands the trigger severity by how far the observed ratio
// overshot the threshold: ratio/threshold >= 2.0 is critical, >= 1.5 high,
// >= 1.2 medium, anything else low.
func SeverityForRatio(ratio, threshold float64) AlertSeverity {
	if threshold == 0 {
		return AlertSeverityLow
	}
	switch excess := ratio / threshold; {
	case excess >= 2.0:
		return AlertSeverityCritical
	case excess >= 1.5:
		return AlertSeverityHigh
	case excess >= 1.2:
		return AlertSeverityMedium
	default:
		return AlertSeverityLow
	}
}

// MetricName identifies which campaign figure an alert rule watches
type MetricName string

const (
	MetricAcos    MetricName = "acos"
	MetricSpend   MetricName = "spend"
	MetricRevenue MetricName = "revenue"
	MetricCPC     MetricName = "cpc"
	MetricBudget  MetricName = "budget"
)

// Operator is a comparison operator for alert rule conditions
type Operator string

const (
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
)

// Compare applies the operator to (value, threshold)
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpGreaterThan:
		return value > threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessThan:
		return value < threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// AlertRule defines a generic metric alert with cooldown suppression
type AlertRule struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Enabled         bool          `json:"enabled"`
	CampaignID      string        `json:"campaign_id,omitempty"`
	Metric          MetricName    `json:"metric"`
	Operator        Operator      `json:"operator"`
	Threshold       float64       `json:"threshold"`
	Severity        AlertSeverity `json:"severity"`
	CooldownMinutes int           `json:"cooldown_minutes"`
	LastTriggered   *time.Time    `json:"last_triggered,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// InCooldown reports whether the rule fired inside its cooldown window
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastTriggered == nil || r.CooldownMinutes <= 0 {
		return false
	}
	return now.Sub(*r.LastTriggered) < time.Duration(r.CooldownMinutes)*time.Minute
}

// Alert represents a triggered alert event
type Alert struct {
	ID         string                 `json:"id"`
	RuleID     string                 `json:"rule_id,omitempty"`
	CampaignID string                 `json:"campaign_id,omitempty"`
	Severity   AlertSeverity          `json:"severity"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	ResolvedAt *time.Time             `json:"resolved_at,omitempty"`
}
